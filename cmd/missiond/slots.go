package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-mission-scheduler/internal/services"
)

func slotsCmd() *cobra.Command {
	var date, agent string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show the slot grid of a day",
		Long:  "With --agent, shows that agent's free and taken slots; without, the global occupancy of each slot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			got, err := a.svcs.Conflicts.AvailableSlots(cmd.Context(), date, agent)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), got)
			}
			renderSlots(cmd.OutOrStdout(), got)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to show (YYYY-MM-DD)")
	cmd.Flags().StringVar(&agent, "agent", "", "agent id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func renderSlots(w io.Writer, got []services.SlotAvailability) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Time", "Available", "Occupancy", "Conflicting missions"})
	for _, s := range got {
		ids := make([]string, len(s.Conflicts))
		for i, c := range s.Conflicts {
			ids[i] = c.MissionID
		}
		avail := "no"
		if s.Available {
			avail = "yes"
		}
		tw.AppendRow(table.Row{s.Time, avail, s.Occupancy, strings.Join(ids, ", ")})
	}
	tw.Render()
}
