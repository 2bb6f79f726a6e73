package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/warp/rental-ledger/rental"
)

// Store kinds.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	StoreKind       string
	DataFile        string
	Inventory       []string
	DefaultCountry  string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	LogLevel        string

	// BackupDir enables scheduled backups when set.
	BackupDir      string
	BackupInterval time.Duration
	BackupKeep     int
	// Scenarios mounts the demo ledger routes.
	Scenarios bool
}

const (
	defaultRunAddress      = ":8080"
	defaultDataFile        = "s25u_rental_db.csv"
	defaultSQLiteFile      = "rentals.db"
	defaultShutdownTimeout = 30 * time.Second
	defaultLogLevel        = "info"
	defaultBackupInterval  = 24 * time.Hour
	defaultBackupKeep      = 14
)

var defaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	stock := rental.DefaultDefaults()
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		StoreKind:       getString(lookup, "STORE_KIND", StoreCSV),
		DataFile:        getString(lookup, "DATA_FILE", ""),
		Inventory:       getList(lookup, "INVENTORY", stock.Catalog),
		DefaultCountry:  getString(lookup, "DEFAULT_COUNTRY", stock.DefaultCountry),
		CORSOrigins:     getList(lookup, "CORS_ORIGINS", defaultCORSOrigins),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:        getString(lookup, "LOG_LEVEL", defaultLogLevel),
		BackupDir:       getString(lookup, "BACKUP_DIR", ""),
		BackupInterval:  getDuration(lookup, "BACKUP_INTERVAL", defaultBackupInterval),
		BackupKeep:      getInt(lookup, "BACKUP_KEEP", defaultBackupKeep),
		Scenarios:       getBool(lookup, "ENABLE_SCENARIOS", false),
	}

	fs := flag.NewFlagSet("rental-ledger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		inventoryStr       = strings.Join(cfg.Inventory, ",")
		corsStr            = strings.Join(cfg.CORSOrigins, ",")
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		backupIntervalStr  = cfg.BackupInterval.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.StoreKind, "store", cfg.StoreKind, "Ledger backend: csv or sqlite")
	fs.StringVar(&cfg.DataFile, "data", cfg.DataFile, "Ledger file (CSV file or SQLite database)")
	fs.StringVar(&inventoryStr, "inventory", inventoryStr, "Comma separated device catalog")
	fs.StringVar(&cfg.DefaultCountry, "country", cfg.DefaultCountry, "Default country for records without one")
	fs.StringVar(&corsStr, "cors", corsStr, "Comma separated allowed CORS origins")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "Directory for scheduled backups (empty disables them)")
	fs.StringVar(&backupIntervalStr, "backup-interval", backupIntervalStr, "Interval between scheduled backups")
	fs.IntVar(&cfg.BackupKeep, "backup-keep", cfg.BackupKeep, "Scheduled backups to keep (0 keeps all)")
	fs.BoolVar(&cfg.Scenarios, "scenarios", cfg.Scenarios, "Enable demo ledger routes")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.BackupInterval, err = time.ParseDuration(backupIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid backup interval: %w", err)
	}
	if cfg.BackupInterval <= 0 {
		cfg.BackupInterval = defaultBackupInterval
	}

	cfg.Inventory = splitList(inventoryStr)
	cfg.CORSOrigins = splitList(corsStr)

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	switch cfg.StoreKind {
	case StoreCSV:
		if cfg.DataFile == "" {
			cfg.DataFile = defaultDataFile
		}
	case StoreSQLite:
		if cfg.DataFile == "" {
			cfg.DataFile = defaultSQLiteFile
		}
	default:
		return nil, fmt.Errorf("unknown store kind %q (want %s or %s)", cfg.StoreKind, StoreCSV, StoreSQLite)
	}

	if len(cfg.Inventory) == 0 {
		return nil, fmt.Errorf("inventory must list at least one device")
	}

	return cfg, nil
}

// Defaults returns the engine configuration for this deployment.
func (c *Config) Defaults() rental.Defaults {
	d := rental.DefaultDefaults()
	d.Catalog = append([]string(nil), c.Inventory...)
	d.DefaultCountry = c.DefaultCountry
	return d
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getList(lookup envLookup, key string, def []string) []string {
	if v, ok := lookup(key); ok && v != "" {
		return splitList(v)
	}
	return append([]string(nil), def...)
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
