package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/models"
	"github.com/noah-isme/pitch-review/internal/observability"
)

const sessionEventBufferSize = 16

// SessionEvents streams session snapshots to connected clients across nodes.
type SessionEvents interface {
	Publish(ctx context.Context, session models.Session)
	Subscribe(sessionID string) (<-chan models.Session, func())
	Start(ctx context.Context)
}

type sessionEvent struct {
	Source  string         `json:"source"`
	Session models.Session `json:"session"`
	SentAt  time.Time      `json:"sent_at"`
}

type sessionBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan models.Session]struct{}
}

type sessionEvents struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *sessionBroker
	nodeID       string
}

// NewSessionEvents builds the session event hub. Redis and NATS are optional fan-out transports.
// Only one carries events so remote nodes see each update once; NATS is used when both are set.
func NewSessionEvents(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) SessionEvents {
	if natsConn != nil {
		redisClient = nil
	}

	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":sessions"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".sessions"
	}

	return &sessionEvents{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "session_events").Logger(),
		broker: &sessionBroker{
			subscribers: make(map[string]map[chan models.Session]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (e *sessionEvents) Start(ctx context.Context) {
	if e.redis != nil && e.redisChannel != "" {
		go e.consumeRedis(ctx)
	}
	if e.nats != nil && e.natsSubject != "" {
		go e.consumeNATS(ctx)
	}
}

func (e *sessionEvents) Publish(ctx context.Context, session models.Session) {
	e.broker.broadcast(session)

	if err := e.fanout(ctx, session); err != nil {
		e.logger.Warn().Err(err).Str("session_id", session.ID).Msg("failed to fan out session event")
	}
}

func (e *sessionEvents) Subscribe(sessionID string) (<-chan models.Session, func()) {
	channel := make(chan models.Session, sessionEventBufferSize)

	e.broker.subscribe(sessionID, channel)
	observability.SessionStreamsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			e.broker.unsubscribe(sessionID, channel)
			observability.SessionStreamsActive().Dec()
		})
	}

	return channel, cleanup
}

func (e *sessionEvents) fanout(ctx context.Context, session models.Session) error {
	if (e.redis == nil || e.redisChannel == "") && (e.nats == nil || e.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(sessionEvent{
		Source:  e.nodeID,
		Session: session,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if e.redis != nil && e.redisChannel != "" {
		if err := e.redis.Publish(ctx, e.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if e.nats != nil && e.natsSubject != "" {
		if err := e.nats.Publish(e.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (e *sessionEvents) consumeRedis(ctx context.Context) {
	pubsub := e.redis.Subscribe(ctx, e.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			e.logger.Error().Err(err).Msg("session redis subscription closed")
			return
		}
		e.handleEvent("redis", []byte(msg.Payload))
	}
}

func (e *sessionEvents) consumeNATS(ctx context.Context) {
	sub, err := e.nats.Subscribe(e.natsSubject, func(msg *nats.Msg) {
		e.handleEvent("nats", msg.Data)
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to subscribe to nats session subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to drain session nats subscription")
		}
	}()
}

func (e *sessionEvents) handleEvent(source string, payload []byte) {
	var event sessionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		e.logger.Warn().Err(err).Msg("invalid session event payload")
		return
	}

	if event.Source == e.nodeID || event.Session.ID == "" {
		return
	}

	observability.SessionEventsReceived().WithLabelValues(source).Inc()
	e.broker.broadcast(event.Session)
}

func (b *sessionBroker) subscribe(sessionID string, ch chan models.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sessionID]; !exists {
		b.subscribers[sessionID] = make(map[chan models.Session]struct{})
	}
	b.subscribers[sessionID][ch] = struct{}{}
}

func (b *sessionBroker) unsubscribe(sessionID string, ch chan models.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[sessionID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, sessionID)
		}
	}
}

func (b *sessionBroker) broadcast(session models.Session) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[session.ID] {
		select {
		case ch <- session:
		default:
		}
	}
}
