// Package heartbeat logs a liveness line every N kernel ticks.
package heartbeat

import (
	"context"

	"go.uber.org/zap"

	"eventkernel/bus"
	"eventkernel/kernel"
	"eventkernel/services/config"
	"eventkernel/types"
)

var topicConfigHeartbeat = config.Topic("heartbeat")

// TopicHeartbeat carries a types.Tick for every heartbeat emitted.
var TopicHeartbeat = bus.T("heartbeat")

type Service struct {
	log   *zap.Logger
	every uint64
	done  chan struct{}
}

func New(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log.Named("heartbeat"), every: 10, done: make(chan struct{})}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	defer close(s.done)
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	// Retained config is already queued; apply it before the first tick.
	select {
	case msg := <-cfgSub.Channel():
		s.applyConfig(msg)
	default:
	}
	tickSub := conn.Subscribe(kernel.TopicTick())
	defer conn.Unsubscribe(tickSub)

	// loop until context is cancelled, respond to ticks and config changes
	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat service stopping")
			return
		case msg := <-tickSub.Channel():
			t, ok := msg.Payload.(types.Tick)
			if !ok || t.Count%s.every != 0 {
				continue
			}
			s.log.Info("heartbeat", zap.Uint64("ticks", t.Count))
			conn.Publish(conn.NewMessage(TopicHeartbeat, t, false))
		case msg := <-cfgSub.Channel():
			s.applyConfig(msg)
		}
	}
}

func (s *Service) applyConfig(msg *bus.Message) {
	if hc, ok := msg.Payload.(config.HeartbeatConfig); ok && hc.EveryTicks > 0 {
		s.every = uint64(hc.EveryTicks)
		s.log.Info("heartbeat interval set", zap.Int("every_ticks", hc.EveryTicks))
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}

// Done is closed once the service has stopped.
func (s *Service) Done() <-chan struct{} { return s.done }
