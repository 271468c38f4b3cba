/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mooddiary/apiserver/internal/mq"
	"github.com/mooddiary/apiserver/types"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect diary events",
}

// eventsTailCmd logs every diary event published on the configured channel.
var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow diary events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("events tail needs MQ_BACKEND=rabbitmq or pubsub")
		}
		defer broker.Close()

		logger.Info("tailing diary events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.DiaryChannel)
		err = mq.SubscribeDiaryEvents(ctx, broker, cfg.MQ.DiaryChannel, func(ctx context.Context, ev types.DiaryEvent) error {
			logger.InfoContext(ctx, "diary event",
				"type", string(ev.Type),
				"diary_id", ev.DiaryID,
				"user_id", ev.UserID,
				"occurred_at", ev.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
