package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pitch-review/internal/observability"
)

// Alert kinds.
const (
	AlertKindMissingInput     = "missing_input"
	AlertKindSubmissionFailed = "submission_failed"
)

// Alert is a blocking, user facing message raised by a session.
type Alert struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	RaisedAt  time.Time `json:"raised_at"`
}

// Notifier delivers alerts to the user.
type Notifier interface {
	Alert(ctx context.Context, alert Alert) error
}

type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier records alerts in the structured log.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "alert_notifier").Logger()}
}

func (n *logNotifier) Alert(_ context.Context, alert Alert) error {
	observability.Alerts().WithLabelValues(alert.Kind).Inc()
	n.logger.Info().
		Str("session_id", alert.SessionID).
		Str("kind", alert.Kind).
		Str("message", alert.Message).
		Msg("alert raised")
	return nil
}

type natsNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier publishes alerts on <channelBase>.alerts.
func NewNATSNotifier(conn *nats.Conn, channelBase string) Notifier {
	return &natsNotifier{
		conn:    conn,
		subject: strings.ReplaceAll(channelBase, ":", ".") + ".alerts",
	}
}

func (n *natsNotifier) Alert(_ context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, payload)
}

type multiNotifier []Notifier

// NewMultiNotifier fans an alert out to every non-nil notifier.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	filtered := make(multiNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func (m multiNotifier) Alert(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Alert(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
