package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-mission-scheduler/internal/services"
	"github.com/tbourn/go-mission-scheduler/internal/sysutil"
)

func sweepCmd() *cobra.Command {
	var only []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the periodic jobs once (for cron or a Kubernetes CronJob)",
		Long: "Runs " + strings.Join(services.AllJobs, ", ") + " in that order. " +
			"Every job is safe to repeat and to run concurrently with the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			results, err := a.svcs.Jobs.Run(cmd.Context(), only...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				err = printJSON(out, results)
			} else {
				renderJobs(out, results)
			}
			if err != nil {
				return err
			}
			return firstJobError(results)
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "jobs to run ("+strings.Join(services.AllJobs, ",")+")")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func renderJobs(w io.Writer, results []services.JobResult) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Job", "Duration", "Summary", "Error"})
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		tw.AppendRow(table.Row{r.Name, r.Duration.Round(time.Millisecond).String(), compactJSON(r.Summary), errText})
	}
	tw.Render()
}

func firstJobError(results []services.JobResult) error {
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("job %s: %w", r.Name, r.Err)
		}
	}
	return nil
}

// newTable returns a go-pretty writer mirroring to w. NO_COLOR selects the
// plain style.
func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	if sysutil.IsTruthy(os.Getenv("NO_COLOR")) {
		tw.SetStyle(table.StyleLight)
	} else {
		tw.SetStyle(table.StyleColoredDark)
	}
	return tw
}

func compactJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
