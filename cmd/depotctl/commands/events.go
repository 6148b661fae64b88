package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"upload-service/internal/instrument"
	"upload-service/internal/store"
)

var (
	eventLimit int
	eventTrace string
	eventType  string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent audit events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := store.New(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Bootstrap(cmd.Context()); err != nil {
			return err
		}

		rows, err := instrument.QueryEvents(cmd.Context(), db.DB, db.Dialect, instrument.EventFilter{
			TraceID:   eventTrace,
			EventType: eventType,
			Limit:     eventLimit,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			return printJSON(out, rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No events recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tTYPE\tACTION\tRECORD\tSTATUS\tDURATION")
		for _, r := range rows {
			fmt.Fprintf(tw, "%v\t%v\t%v/%v/%v\t%s\t%s\t%s\n",
				r["created_at"], r["event_type"], r["source"], r["component"], r["action"],
				cell(r["record_id"]), cell(r["status"]), duration(r["duration_ms"]))
		}
		return tw.Flush()
	},
}

func cell(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

func duration(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.2fms", f)
	}
	return "-"
}

func init() {
	eventsCmd.Flags().IntVarP(&eventLimit, "limit", "n", 20, "number of events to show (max 100)")
	eventsCmd.Flags().StringVar(&eventTrace, "trace", "", "only events of this trace ID")
	eventsCmd.Flags().StringVar(&eventType, "type", "", "only events of this type (system or business)")
}
