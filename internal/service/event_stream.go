package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/dto"
)

const eventBufferSize = 16

// EventStream fans attendance events out to in-process subscribers (the live
// take page) and, when configured, across nodes via NATS.
type EventStream interface {
	Publish(ctx context.Context, event dto.AttendanceEvent)
	Subscribe(sessionID uint) (<-chan dto.AttendanceEvent, func())
	Start(ctx context.Context)
}

type eventStream struct {
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
	broker  *attendanceBroker
	nodeID  string
}

type attendanceEnvelope struct {
	Source string              `json:"source"`
	Event  dto.AttendanceEvent `json:"event"`
}

type attendanceBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.AttendanceEvent]struct{}
}

// NewEventStream constructs the attendance event fanout. A nil NATS
// connection keeps the stream purely in-process.
func NewEventStream(natsConn *nats.Conn, subject string, logger zerolog.Logger) EventStream {
	return &eventStream{
		nats:    natsConn,
		subject: subject,
		logger:  logger.With().Str("component", "event_stream").Logger(),
		broker: &attendanceBroker{
			subscribers: make(map[uint]map[chan dto.AttendanceEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start begins consuming cross-node events. Safe to skip when NATS is absent.
func (s *eventStream) Start(ctx context.Context) {
	if s.nats == nil || s.subject == "" {
		return
	}

	subscription, err := s.nats.Subscribe(s.subject, func(msg *nats.Msg) {
		var envelope attendanceEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed attendance event")
			return
		}
		if envelope.Source == s.nodeID {
			return
		}
		s.broker.fanout(envelope.Event)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to attendance events")
		return
	}

	go func() {
		<-ctx.Done()
		_ = subscription.Unsubscribe()
	}()
}

func (s *eventStream) Publish(_ context.Context, event dto.AttendanceEvent) {
	s.broker.fanout(event)

	if s.nats == nil || s.subject == "" {
		return
	}

	payload, err := json.Marshal(attendanceEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode attendance event")
		return
	}
	if err := s.nats.Publish(s.subject, payload); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish attendance event")
	}
}

func (s *eventStream) Subscribe(sessionID uint) (<-chan dto.AttendanceEvent, func()) {
	channel := make(chan dto.AttendanceEvent, eventBufferSize)

	s.broker.mu.Lock()
	if s.broker.subscribers[sessionID] == nil {
		s.broker.subscribers[sessionID] = make(map[chan dto.AttendanceEvent]struct{})
	}
	s.broker.subscribers[sessionID][channel] = struct{}{}
	s.broker.mu.Unlock()

	cancel := func() {
		s.broker.mu.Lock()
		if subscribers, ok := s.broker.subscribers[sessionID]; ok {
			if _, present := subscribers[channel]; present {
				delete(subscribers, channel)
				close(channel)
			}
			if len(subscribers) == 0 {
				delete(s.broker.subscribers, sessionID)
			}
		}
		s.broker.mu.Unlock()
	}

	return channel, cancel
}

func (b *attendanceBroker) fanout(event dto.AttendanceEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for channel := range b.subscribers[event.SessionID] {
		select {
		case channel <- event:
		default:
			// slow consumer; drop rather than block the writer
		}
	}
}
