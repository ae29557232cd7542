// Package notify tells registered devices that a new portfolio update is
// available.
//
// The dispatcher reads the full token list, then hands one message per token
// to the push gateway. Delivery is fire and forget: the gateway receipts are
// not read back.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/timberline/metrics"
	"github.com/etnz/timberline/tokens"
	"go.uber.org/zap"
)

// Message is a push message, in the Expo push API format.
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound,omitempty"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Gateway delivers push messages.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// TokenSource lists the device tokens to notify.
type TokenSource interface {
	Tokens(ctx context.Context) ([]string, error)
}

// FromRegistry returns a TokenSource reading a registry directly.
func FromRegistry(r tokens.Registry) TokenSource {
	return registrySource{r}
}

type registrySource struct{ r tokens.Registry }

func (s registrySource) Tokens(ctx context.Context) ([]string, error) {
	list, err := s.r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list))
	for _, t := range list {
		if t.Token != "" {
			ids = append(ids, t.Token)
		}
	}
	return ids, nil
}

// Dispatcher sends the portfolio update notification to every device.
type Dispatcher struct {
	Source  TokenSource
	Gateway Gateway
	Title   string
	Body    string
	Origin  string // data.source of the message, e.g. "timberline-cli"

	Logger  *zap.Logger      // optional
	Metrics *metrics.Metrics // optional
}

// Message returns the notification message for a device token.
func (d *Dispatcher) Message(to string) Message {
	return Message{
		To:    to,
		Sound: "default",
		Title: d.Title,
		Body:  d.Body,
		Data: map[string]any{
			"source": d.Origin,
			"intent": "portfolio-update",
		},
	}
}

// Dispatch sends one message per registered token, one after the other.
//
// It returns the number of messages accepted by the gateway. A failure to send
// to one token does not stop the others: all failures are returned joined.
// No token at all is not an error.
func (d *Dispatcher) Dispatch(ctx context.Context) (sent int, err error) {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ids, err := d.Source.Tokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("cannot read push tokens: %w", err)
	}
	if len(ids) == 0 {
		log.Info("no push token registered, nothing to send")
		return 0, nil
	}

	log.Info("sending notifications", zap.Int("tokens", len(ids)))
	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sent, errors.Join(errs, err)
		}
		err := d.Gateway.Send(ctx, d.Message(id))
		d.Metrics.Notification(err)
		if err != nil {
			log.Warn("push failed", zap.String("token", id), zap.Error(err))
			errs = errors.Join(errs, fmt.Errorf("token %s: %w", id, err))
			continue
		}
		sent++
	}
	log.Info("done sending notifications", zap.Int("sent", sent), zap.Int("failed", len(ids)-sent))
	return sent, errs
}
