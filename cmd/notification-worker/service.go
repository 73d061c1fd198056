package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

const defaultHeartbeat = time.Minute

type pinger interface {
	Ping(context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	Redis     pinger
	PubSub    pinger
	Consumer  consumer
	Instance  string
	Heartbeat time.Duration
}

// Service runs the notification delivery consumer after its dependencies
// answer a ping, and logs a heartbeat while it is alive.
type Service struct {
	logg      *logger.Logger
	redis     pinger
	pubsub    pinger
	consumer  consumer
	instance  string
	heartbeat time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Consumer == nil:
		return nil, errors.New("notification consumer is required")
	}
	heartbeat := params.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Service{
		logg:      params.Logger,
		redis:     params.Redis,
		pubsub:    params.PubSub,
		consumer:  params.Consumer,
		instance:  params.Instance,
		heartbeat: heartbeat,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		ping pinger
	}{{"redis", s.redis}, {"pubsub", s.pubsub}} {
		if err := dep.ping.Ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	return nil
}

// Run blocks until ctx is canceled or the consumer exits.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "instance", s.instance)
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "notification worker ready")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.consumer.Run(ctx)
	}()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	started := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "notification worker context canceled")
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "notification consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			s.logg.Info(s.logg.WithField(ctx, "uptime_s", int64(time.Since(started).Seconds())), "notification worker heartbeat")
		}
	}
}
