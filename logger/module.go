package logger

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/warp/rental-ledger/config"
)

// Module provides the process logger at the configured level.
var Module = fx.Provide(func(cfg *config.Config) *slog.Logger {
	return New(cfg.LogLevel)
})
