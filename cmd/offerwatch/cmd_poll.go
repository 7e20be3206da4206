package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caesar-terminal/offerwatch/internal/poll"
)

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Bool("full", false, "fetch every active offer regardless of the cursor")
	pollCmd.Flags().Bool("prune", false, "drop offers in a terminal state from the cursor afterwards")
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle and print the changed offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		prune, _ := cmd.Flags().GetBool("prune")

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.manager.Poll(ctx, full)
		if err != nil {
			return err
		}
		printResult(os.Stdout, res)

		if prune {
			n, err := a.manager.PruneTerminal(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Pruned %d settled offers.\n", n)
		}
		return nil
	},
}

func printResult(out io.Writer, res poll.Result) {
	if len(res.Deltas) == 0 && len(res.Stale) == 0 {
		fmt.Fprintln(out, "No changes.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFER\tDIRECTION\tOLD\tNEW\tITEMS\tGLITCHED")
	for _, d := range res.Deltas {
		o := d.Offer
		old := "-"
		if d.OldState != nil {
			old = d.OldState.String()
		}
		dir := "received"
		if o.IsOurOffer {
			dir = "sent"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%v\n",
			o, dir, old, o.State, len(o.ItemsToGive), len(o.ItemsToReceive), o.IsGlitched())
	}
	w.Flush()

	for _, o := range res.Stale {
		fmt.Fprintf(out, "stale: %s still %s, expired %s\n", o, o.State, o.ExpirationTime.Format("2006-01-02 15:04"))
	}
}
