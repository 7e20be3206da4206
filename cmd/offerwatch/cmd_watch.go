package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/caesar-terminal/offerwatch/internal/breaker"
	"github.com/caesar-terminal/offerwatch/internal/mobileconf"
	"github.com/caesar-terminal/offerwatch/internal/poll"
)

// cronParser accepts standard 5-field expressions, an optional seconds
// field and descriptors such as "@every 30s".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const timeSyncInterval = time.Hour

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("schedule", "", "poll schedule (defaults to poll.schedule)")
	watchCmd.Flags().Bool("auto-confirm", false, "confirm our own offers that wait for mobile confirmation")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll on a schedule until interrupted",
	Long: `Poll on a schedule until interrupted.

With --auto-confirm, SIGUSR1 halts confirmations and SIGUSR2 resumes them.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	autoConfirm, _ := cmd.Flags().GetBool("auto-confirm")

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	schedule, _ := cmd.Flags().GetString("schedule")
	if schedule == "" {
		schedule = a.cfg.Poll.Schedule
	}
	if autoConfirm && a.confs == nil {
		return fmt.Errorf("--auto-confirm: %w", mobileconf.ErrNoIdentitySecret)
	}

	gate := breaker.New(breaker.DefaultConfig())
	var queue *confirmQueue
	if autoConfirm {
		queue = newConfirmQueue()
		d, err := a.manager.PollData(ctx)
		if err != nil {
			return err
		}
		queue.Seed(d)
	}

	logger := newCronLogger(slog.Default())
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	_, err = c.AddFunc(schedule, func() {
		res, err := a.manager.Poll(ctx, false)
		if err != nil {
			slog.Error("poll failed", "error", err)
			if gate.RecordFailure() {
				slog.Warn("auto-confirm paused after repeated poll failures", "failures", gate.Failures())
			}
			return
		}
		gate.RecordSuccess()
		reportResult(res)
		if queue != nil {
			runAutoConfirm(ctx, queue, gate, a.manager, res)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Start()
		slog.Info("watching offers", "schedule", schedule, "store", a.cfg.Store.Driver, "auto_confirm", autoConfirm)
		<-gctx.Done()
		<-c.Stop().Done()
		return nil
	})
	if a.confs != nil {
		g.Go(func() error {
			t := time.NewTicker(timeSyncInterval)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					off, err := a.api.ServerTimeOffset(gctx)
					if err != nil {
						slog.Warn("server time query failed", "error", err)
						continue
					}
					a.confs.SetTimeOffset(off)
					slog.Debug("server time offset updated", "offset", off)
				}
			}
		})
	}
	if queue != nil && haltSignal != nil {
		g.Go(func() error {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, haltSignal, resumeSignal)
			defer signal.Stop(sigs)
			for {
				select {
				case <-gctx.Done():
					return nil
				case sig := <-sigs:
					applyHaltSignal(gate, sig)
				}
			}
		})
	}

	err = g.Wait()
	slog.Info("watch stopped")
	return err
}

// runAutoConfirm queues this cycle's offers awaiting mobile confirmation and
// retries every queued offer while the gate allows it.
func runAutoConfirm(ctx context.Context, q *confirmQueue, gate *breaker.Breaker, c offerConfirmer, res poll.Result) {
	q.Observe(res)
	if q.Len() == 0 {
		return
	}
	if !gate.Allow() {
		slog.Info("auto-confirm withheld", "pending", q.Len())
		return
	}
	for _, id := range q.Drain(ctx, c) {
		slog.Info("offer auto-confirmed", "offer", id)
	}
}

func reportResult(res poll.Result) {
	for _, d := range res.Deltas {
		o := d.Offer
		old := "none"
		if d.OldState != nil {
			old = d.OldState.String()
		}
		slog.Info("offer changed", "offer", o.String(), "old", old, "new", o.State.String(), "ours", o.IsOurOffer)
	}
	for _, o := range res.Stale {
		slog.Warn("offer past expiration", "offer", o.String(), "state", o.State.String(), "expired", o.ExpirationTime)
	}
	if len(res.Deltas) > 0 {
		printResult(os.Stdout, res)
	}
}
