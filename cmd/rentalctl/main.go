// Command rentalctl inspects and maintains a rental ledger from the shell.
//
//	rentalctl -data s25u_rental_db.csv list -month 2024-05
//	rentalctl -store sqlite -data rentals.db summary
//	rentalctl export -o backup.csv
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&listCmd{}, "ledger")
	subcommands.Register(&monthsCmd{}, "ledger")
	subcommands.Register(&summaryCmd{}, "ledger")
	subcommands.Register(&deleteCmd{}, "ledger")

	subcommands.Register(&exportCmd{}, "backup")
	subcommands.Register(&importCmd{}, "backup")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
