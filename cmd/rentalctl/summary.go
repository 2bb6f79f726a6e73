package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/warp/rental-ledger/rental"
)

// summaryCmd prints the headline KPIs and the breakdown tables.
type summaryCmd struct {
	breakdowns bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display revenue and occupancy" }
func (*summaryCmd) Usage() string {
	return `rentalctl summary [-breakdowns]

  Displays total revenue, active orders and the occupied devices. The
  available count is an estimate: catalog size minus occupied devices.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.breakdowns, "breakdowns", false, "Also print country, region, gender and lead source counts")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	s := rental.Summarize(l, engine.Defaults.Catalog)

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Orders\t%d\n", s.OrderCount)
	fmt.Fprintf(tw, "Revenue\t%d\n", s.TotalRevenue)
	fmt.Fprintf(tw, "Active\t%d\n", s.ActiveCount)
	fmt.Fprintf(tw, "Occupied\t%s\n", strings.Join(s.OccupiedUnits, ", "))
	fmt.Fprintf(tw, "Available (est.)\t%d\n", s.AvailableEstimate)

	if c.breakdowns {
		b := rental.Analyze(l, engine.Defaults)
		for _, section := range []struct {
			title  string
			counts []rental.Count
		}{
			{"Country", b.Country},
			{"Region", b.Region},
			{"Gender", b.Gender},
			{"Lead source", b.LeadSource},
		} {
			fmt.Fprintf(tw, "\n%s\t\n", section.title)
			for _, count := range section.counts {
				fmt.Fprintf(tw, "  %s\t%d\n", count.Key, count.N)
			}
		}
	}

	if err := tw.Flush(); err != nil {
		fail("Error writing output: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
