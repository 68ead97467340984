package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/reconciler"
)

var (
	watchPoll  time.Duration
	watchClear bool
)

var watchCMD = &cobra.Command{
	Use:   "watch",
	Short: "Live room table with local countdowns",
	Long: `Poll the API every --poll interval and count timed locks down locally
between polls.  A lock whose countdown reached zero is shown as predicted (*)
until the next poll confirms it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		out := cmd.OutOrStdout()
		var mu sync.Mutex
		var lastErr error
		draw := func(rooms []reconciler.Room) {
			mu.Lock()
			defer mu.Unlock()
			if watchClear {
				fmt.Fprint(out, "\033[H\033[2J")
			}
			renderRooms(out, rooms)
			if lastErr != nil {
				fmt.Fprintln(out, mutedStyle.Render("last poll failed: "+lastErr.Error()))
			}
		}

		rec := reconciler.New(newClient(), reconciler.Config{PollInterval: watchPoll},
			reconciler.WithOnChange(draw),
			reconciler.WithOnError(func(err error) {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				if errors.Is(err, model.ErrUnauthorized) {
					cancel(err)
				}
			}),
		)
		rec.Start(ctx)

		// redraw between polls so the remaining column counts down
		refresh := time.NewTicker(time.Second)
		defer refresh.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-refresh.C:
				if snap := rec.Snapshot(); hasTimedLock(snap) {
					draw(snap)
				}
			}
		}
		rec.Stop()
		rec.Wait()

		if err := context.Cause(ctx); errors.Is(err, model.ErrUnauthorized) {
			return fail(cmd, err)
		}
		return nil
	},
}

func init() {
	watchCMD.Flags().DurationVar(&watchPoll, "poll", reconciler.DefaultPollInterval, "poll interval")
	watchCMD.Flags().BoolVar(&watchClear, "clear", true, "clear the screen before every redraw")
	rootCMD.AddCommand(watchCMD)
}

func hasTimedLock(rooms []reconciler.Room) bool {
	for _, r := range rooms {
		if !r.Enabled && r.UnlockAt != nil {
			return true
		}
	}
	return false
}
