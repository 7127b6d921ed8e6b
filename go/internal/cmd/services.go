package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/timez-app/timez/go/internal/config"
	"github.com/timez-app/timez/go/internal/session"
	"github.com/timez-app/timez/go/internal/session/gateway"
	"github.com/timez-app/timez/go/internal/session/publisher"
)

type Services struct {
	Timer   *session.Timer
	Gateway *gateway.Service
	Relay   *publisher.Relay
	closer  func() error
}

func setupServices(ctx context.Context, c *config.Config) (*Services, error) {
	// Session → publisher relay → gateway
	timer := session.NewTimer()
	if err := timer.Configure(c.Session.Questions, c.Session.SecondsPerQuestion()); err != nil {
		return nil, fmt.Errorf("configure default session: %w", err)
	}

	var (
		pub    publisher.EventPublisher
		closer = func() error { return nil }
	)
	if c.NATS.Enabled {
		jsCfg := publisher.DefaultJetStreamConfig()
		jsCfg.URL = c.NATS.URL
		jsCfg.StreamName = c.NATS.StreamName
		jsCfg.SubjectPrefix = c.NATS.SubjectPrefix

		js, err := publisher.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, fmt.Errorf("create JetStream publisher: %w", err)
		}
		pub, closer = js, js.Close
		log.Info().Str("nats_url", jsCfg.URL).Str("stream", jsCfg.StreamName).Msg("publishing session events to JetStream")
	} else {
		pub = publisher.NewLogPublisher()
	}

	return &Services{
		Timer:   timer,
		Gateway: gateway.NewService(timer, gateway.DefaultConfig()),
		Relay:   publisher.NewRelay(timer, pub, publisher.DefaultConfig()),
		closer:  closer,
	}, nil
}

func (s *Services) Close() {
	s.Timer.Stop()
	if err := s.Relay.Stop(); err != nil {
		log.Debug().Err(err).Msg("relay stop")
	}
	if err := s.Gateway.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop gateway")
	}
	if err := s.closer(); err != nil {
		log.Error().Err(err).Msg("failed to close publisher")
	}
}
