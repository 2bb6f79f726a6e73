package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/warp/rental-ledger/app"
	"github.com/warp/rental-ledger/config"
	"github.com/warp/rental-ledger/logger"
	"github.com/warp/rental-ledger/rental"
)

var (
	storeKind = flag.String("store", config.StoreCSV, "Ledger backend: csv or sqlite")
	dataFile  = flag.String("data", "s25u_rental_db.csv", "Ledger file (CSV file or SQLite database)")
	logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	inventory = flag.String("inventory", os.Getenv("INVENTORY"), "Comma separated device catalog (default: stock catalog)")
	country   = flag.String("country", os.Getenv("DEFAULT_COUNTRY"), "Default country for records without one (default: stock)")
)

// stdout receives command output. Tests point it at a buffer.
var stdout io.Writer = os.Stdout

// openEngine opens the ledger selected by the global flags. The caller
// must close the returned closer.
func openEngine() (*rental.Engine, io.Closer, error) {
	store, closer, err := app.OpenStore(*storeKind, *dataFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewWithWriter(os.Stderr, *logLevel)
	return rental.NewEngine(store, deploymentDefaults(), log), closer, nil
}

// deploymentDefaults applies -inventory and -country to the stock
// configuration, the same way the server applies INVENTORY and
// DEFAULT_COUNTRY.
func deploymentDefaults() rental.Defaults {
	stock := rental.DefaultDefaults()
	cfg := config.Config{Inventory: stock.Catalog, DefaultCountry: stock.DefaultCountry}
	var units []string
	for _, unit := range strings.Split(*inventory, ",") {
		if unit = strings.TrimSpace(unit); unit != "" {
			units = append(units, unit)
		}
	}
	if len(units) > 0 {
		cfg.Inventory = units
	}
	if c := strings.TrimSpace(*country); c != "" {
		cfg.DefaultCountry = c
	}
	return cfg.Defaults()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
