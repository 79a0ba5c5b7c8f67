package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/discharge"
)

func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		Short:   "List the recorded one-percent drops",
		GroupID: gBasic,
		Long: `List every battery drop the daemon has seen since it started, oldest first.

Each line shows when the drop was seen and how long the battery took to lose that percent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, err := apiClient.GetHistory()
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			printHistory(cmd.OutOrStdout(), history)
			return nil
		},
	}
}

func printHistory(w io.Writer, history []discharge.Event) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No drops recorded yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDROP\tTOOK")
	for _, e := range history {
		fmt.Fprintf(tw, "%s\t%d%% → %d%%\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.From, e.To, e.Interval.Round(time.Second))
	}
	_ = tw.Flush()
}
