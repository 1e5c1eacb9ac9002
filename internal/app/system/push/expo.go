package push

import (
	"context"
	"net/http"
	"time"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"go.uber.org/zap"
)

// expoBatch is the most messages Expo accepts per request.
const expoBatch = 100

// ExpoConfig configures the Expo sender.
type ExpoConfig struct {
	AccessToken string        // optional; enhanced push security
	Host        string        // defaults to https://exp.host
	Timeout     time.Duration // per request
}

// Expo sends through the Expo push service.
type Expo struct {
	client *expo.PushClient
	log    *zap.Logger
}

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(r)
}

// NewExpo creates an Expo sender.
func NewExpo(cfg ExpoConfig, log *zap.Logger) *Expo {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.AccessToken != "" {
		hc.Transport = bearer{token: cfg.AccessToken, next: http.DefaultTransport}
	}
	return &Expo{
		client: expo.NewPushClient(&expo.ClientConfig{Host: cfg.Host, HTTPClient: hc}),
		log:    log,
	}
}

// Send publishes one message per token, in batches. Malformed tokens count
// as failures without a request.
func (e *Expo) Send(ctx context.Context, tokens []string, n Notification) (Result, error) {
	var res Result
	var msgs []expo.PushMessage
	for _, raw := range tokens {
		tok, err := expo.NewExponentPushToken(raw)
		if err != nil {
			res.Failed++
			continue
		}
		msgs = append(msgs, expo.PushMessage{
			To:       []expo.ExponentPushToken{tok},
			Title:    n.Title,
			Body:     n.Body,
			Data:     n.Data,
			Sound:    "default",
			Priority: expo.HighPriority,
		})
	}

	for start := 0; start < len(msgs); start += expoBatch {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+expoBatch, len(msgs))
		responses, err := e.client.PublishMultiple(msgs[start:end])
		if err != nil {
			return res, err
		}
		for _, r := range responses {
			if err := r.ValidateResponse(); err != nil {
				res.Failed++
				e.log.Debug("expo push rejected", zap.Error(err))
				continue
			}
			res.Sent++
		}
	}
	return res, nil
}
