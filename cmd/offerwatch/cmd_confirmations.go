package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caesar-terminal/offerwatch/internal/mobileconf"
)

func init() {
	rootCmd.AddCommand(confirmationsCmd)
	confirmationsCmd.AddCommand(confListCmd, confAcceptCmd, confDenyCmd, confOfferCmd)
}

var confirmationsCmd = &cobra.Command{
	Use:     "confirmations",
	Aliases: []string{"conf"},
	Short:   "List and answer mobile confirmations",
}

var confListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending confirmations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		confs, err := requireConfirmations(a)
		if err != nil {
			return err
		}

		list, err := confs.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stdout, "No pending confirmations.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tCREATOR\tDESCRIPTION")
		for _, c := range list {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.ID, c.Type, c.Creator, c.Description)
		}
		return w.Flush()
	},
}

var confAcceptCmd = &cobra.Command{
	Use:   "accept <confirmation-id>",
	Short: "Accept a confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return respond(cmd.Context(), args[0], mobileconf.OpAllow)
	},
}

var confDenyCmd = &cobra.Command{
	Use:   "deny <confirmation-id>",
	Short: "Deny a confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return respond(cmd.Context(), args[0], mobileconf.OpCancel)
	},
}

var confOfferCmd = &cobra.Command{
	Use:   "offer <tradeofferid>",
	Short: "Accept the confirmation created by a trade offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offerID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid offer id %q", args[0])
		}
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.manager.ConfirmOffer(ctx, offerID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Offer %d confirmed.\n", offerID)
		return nil
	},
}

// respond looks the confirmation up again because acting on it needs its
// current key.
func respond(ctx context.Context, rawID string, op mobileconf.Operation) error {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid confirmation id %q", rawID)
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	confs, err := requireConfirmations(a)
	if err != nil {
		return err
	}

	list, err := confs.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range list {
		if c.ID != id {
			continue
		}
		if err := confs.Respond(ctx, c, op); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Confirmation %d: %s done.\n", id, op)
		return nil
	}
	return fmt.Errorf("confirmation %d is not pending", id)
}
