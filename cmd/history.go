package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/motorpanel/core/dispatch/logging"
)

var (
	historySince   time.Duration
	historyIntent  string
	historyOutcome string
	historyLimit   int
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:          "history",
	Short:        "Print the command log",
	RunE:         printHistory,
	SilenceUsage: true,
}

func init() {
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only records newer than this duration")
	historyCmd.Flags().StringVar(&historyIntent, "intent", "", "filter by intent")
	historyCmd.Flags().StringVar(&historyOutcome, "outcome", "", "filter by outcome (sent, invalid_input, not_connected, error)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of most recent records, 0 for all")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print records as JSON lines")
	rootCmd.AddCommand(historyCmd)
}

func printHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.CommandLog.Backend == "none" {
		return fmt.Errorf("command log is disabled, set command_log.backend")
	}
	store, err := logging.NewStore(cfg.CommandLog)
	if err != nil {
		return err
	}
	defer store.Close()

	q := logging.CommandQuery{Intent: historyIntent, Outcome: historyOutcome, Limit: historyLimit}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		enc := json.NewEncoder(out)
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tINTENT\tVALUE\tOUTCOME\tERROR")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.Timestamp.Local().Format(time.DateTime), r.Intent, r.Value, r.Outcome, r.Error)
	}
	return tw.Flush()
}
