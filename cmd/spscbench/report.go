package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/OCAP2/spsc/internal/bench"
)

func printSummary(w io.Writer, results []bench.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tBACKEND\tMODE\tCAPACITY\tMESSAGES\tDURATION\tMSG/S\tREJECTED\tPEAK")
	var total time.Duration
	var messages int
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%.0f\t%d\t%d\n",
			r.RunID.String()[:8], r.Backend, r.Mode, r.Capacity, r.Messages,
			r.Duration.Round(time.Microsecond), r.Throughput(), r.Stats.Rejected, r.Depth.Peak)
		total += r.Duration
		messages += r.Messages
	}
	_ = tw.Flush()

	if len(results) > 1 && total > 0 {
		fmt.Fprintf(w, "\n%d runs, %d messages in %s, %.0f msg/s overall\n",
			len(results), messages, total.Round(time.Microsecond), float64(messages)/total.Seconds())
	}
}
