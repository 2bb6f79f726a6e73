package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/warp/rental-ledger/rental"
)

// listCmd prints the orders of one month, or all of them.
type listCmd struct {
	month string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list orders, optionally for one month" }
func (*listCmd) Usage() string {
	return `rentalctl list [-month <YYYY-MM|ALL>]

  Lists orders with their position in the full ledger. ALL sorts by start
  date, newest first; a month keeps ledger order.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", rental.AllLabel, "Month to list (YYYY-MM) or ALL")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	sel, err := rental.ParseSelector(c.month)
	if err != nil {
		fail("Error parsing month: %v", err)
		return subcommands.ExitUsageError
	}

	engine, closer, err := openEngine()
	if err != nil {
		fail("Error opening ledger: %v", err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	view, err := engine.View(ctx, sel)
	if err != nil {
		fail("Error loading ledger: %v", err)
		return subcommands.ExitFailure
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tDEVICE\tSTART\tEND\tCUSTOMER\tRENT\tDEPOSIT\tID")
	for _, row := range view.Rows {
		r := row.Record
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			row.Position, r.Status, r.DeviceID, r.StartDate, r.EndDate,
			r.CustomerName, r.RentFee, r.Deposit, r.ID)
	}
	if err := tw.Flush(); err != nil {
		fail("Error writing output: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "%d orders (%s) at version %s\n", len(view.Rows), sel, view.Version)
	return subcommands.ExitSuccess
}

// monthsCmd prints the months that have orders.
type monthsCmd struct{}

func (*monthsCmd) Name() string     { return "months" }
func (*monthsCmd) Synopsis() string { return "list months that have orders" }
func (*monthsCmd) Usage() string {
	return `rentalctl months

  Lists the months of the orders' start dates, most recent first.
`
}

func (*monthsCmd) SetFlags(*flag.FlagSet) {}

func (*monthsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	engine, closer, err := openEngine()
	if err != nil {
		fail("Error opening ledger: %v", err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	l, err := engine.LoadAll(ctx)
	if err != nil {
		fail("Error loading ledger: %v", err)
		return subcommands.ExitFailure
	}
	for _, ym := range engine.LoadMonths(l) {
		fmt.Fprintln(stdout, ym)
	}
	return subcommands.ExitSuccess
}
