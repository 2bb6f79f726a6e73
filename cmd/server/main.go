/*
main.go - Application entry point

PURPOSE:
  Starts the rental ledger HTTP server. Configuration comes from flags
  and environment variables (see config/config.go), and the component
  graph is assembled by app.Module.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (SHUTDOWN_TIMEOUT)
  3. Close the ledger store
  4. Exit

EXAMPLES:
  # CSV ledger next to the binary
  ./server -data=./s25u_rental_db.csv

  # SQLite ledger on another port
  ./server -store=sqlite -data=./rentals.db -a=:3000

SEE ALSO:
  - app/app.go: Dependency graph and lifecycle hooks
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/warp/rental-ledger/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := fx.New(app.Module())

	run(ctx, application)
}
