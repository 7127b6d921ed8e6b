package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timez-app/timez/go/internal/session/publisher"
)

var watchDurable string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow session events published to NATS JetStream",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchDurable, "durable", "", "Durable consumer name (ephemeral if empty)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ccfg := publisher.DefaultJetStreamConsumerConfig()
	ccfg.URL = cfg.NATS.URL
	ccfg.StreamName = cfg.NATS.StreamName
	ccfg.SubjectFilter = cfg.NATS.SubjectPrefix + ".>"
	ccfg.ConsumerName = watchDurable

	out := cmd.OutOrStdout()
	consumer, err := publisher.NewEventConsumer(ctx, ccfg, func(ctx context.Context, msg publisher.Message) error {
		_, err := io.WriteString(out, renderMessage(msg)+"\n")
		return err
	})
	if err != nil {
		return err
	}
	defer consumer.Stop()

	return consumer.Start(ctx)
}

func renderMessage(msg publisher.Message) string {
	session := msg.SessionID
	if len(session) > 8 {
		session = session[:8]
	}
	return fmt.Sprintf("%s %s %s %s",
		valueMuted.Render(msg.OccurredAt.Local().Format("15:04:05")),
		valueMuted.Render(session),
		labelStyle.Render(fmt.Sprintf("%-24s", msg.EventType)),
		string(msg.Payload),
	)
}
