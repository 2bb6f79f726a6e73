package app

import (
	"fmt"
	"io"

	"github.com/warp/rental-ledger/config"
	"github.com/warp/rental-ledger/rental"
	"github.com/warp/rental-ledger/store/csvfile"
	"github.com/warp/rental-ledger/store/sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the ledger backend of the given kind at path. The
// returned closer releases backend resources and is never nil.
func OpenStore(kind, path string) (rental.Store, io.Closer, error) {
	switch kind {
	case config.StoreCSV:
		return csvfile.New(path), nopCloser{}, nil
	case config.StoreSQLite:
		s, err := sqlite.New(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
