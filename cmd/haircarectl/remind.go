package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haircarepro/haircarepro/internal/bootstrap"
	"github.com/haircarepro/haircarepro/internal/metrics"
	"github.com/haircarepro/haircarepro/internal/reminder"
)

func newRemindCmd(c *cli) *cobra.Command {
	remindCmd := &cobra.Command{
		Use:   "remind",
		Short: "Wash-day reminders",
	}

	remindCmd.AddCommand(&cobra.Command{
		Use:   "run-once",
		Short: "Run one reminder pass now",
		Long: `Runs the same pass the server schedules daily at 09:00: every care plan
whose wash interval has elapsed gets a reminder email and a fresh stamp.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			repo, err := c.openRepository(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			recorder := metrics.NewNoop()
			notifier := bootstrap.NewNotifier(c.cfg, c.logger, recorder)
			scheduler := reminder.NewScheduler(repo, notifier, c.logger, recorder)

			result, err := scheduler.RunOnce(ctx, time.Now())
			if err != nil {
				return err
			}
			c.printf("scanned=%d skipped=%d sent=%d failed=%d\n",
				result.Scanned, result.Skipped, result.Sent, result.Failed)
			return nil
		},
	})

	return remindCmd
}
