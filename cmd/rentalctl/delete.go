package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// deleteCmd removes one order by position or by id.
type deleteCmd struct {
	position int
	id       string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove one order" }
func (*deleteCmd) Usage() string {
	return `rentalctl delete (-position <n> | -id <order id>)

  Removes one order. Positions are those printed by "list" and refer to
  the full ledger, not to a filtered month.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.position, "position", -1, "Position of the order in the full ledger")
	f.StringVar(&c.id, "id", "", "Order id")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.position < 0) == (c.id == "") {
		fail("Exactly one of -position or -id is required")
		return subcommands.ExitUsageError
	}

	engine, closer, err := openEngine()
	if err != nil {
		fail("Error opening ledger: %v", err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	if c.id != "" {
		r, err := engine.DeleteByID(ctx, c.id)
		if err != nil {
			fail("Error deleting order %s: %v", c.id, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Deleted order %s (%s, %s)\n", r.ID, r.CustomerName, r.StartDate)
		return subcommands.ExitSuccess
	}

	r, err := engine.DeleteAt(ctx, c.position)
	if err != nil {
		fail("Error deleting position %d: %v", c.position, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Deleted order %s (%s, %s)\n", r.ID, r.CustomerName, r.StartDate)
	return subcommands.ExitSuccess
}
