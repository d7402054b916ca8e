package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/becayis/chatcore/internal/unread"
)

func newUnreadCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Show the unread badge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(true)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return e.unread(ctx, watch, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep polling and print every change")
	return cmd
}

func (e *env) unread(ctx context.Context, watch bool, out io.Writer) error {
	client, err := e.apiClient()
	if err != nil {
		return err
	}

	agg := unread.New(unread.Config{
		SelfID:   e.session.UserID,
		Source:   client,
		Interval: e.cfg.UnreadPollInterval,
		HasSession: func() bool {
			sess, err := e.store.Session()
			return err == nil && sess.Active()
		},
		Logger: e.log,
	})

	if !watch {
		if !agg.Refresh(ctx) {
			return errors.New("okunmamış sayısı alınamadı")
		}
		printTally(out, agg.Snapshot())
		return nil
	}

	agg.OnChange(func(t unread.Tally) { printTally(out, t) })
	if err := agg.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printTally(out io.Writer, t unread.Tally) {
	fmt.Fprintf(out, "%d okunmamış (bildirim %d, davet %d, mesaj %d)\n",
		t.Total(), t.Notifications, t.PendingInvitations, t.UnreadMessages)
}
