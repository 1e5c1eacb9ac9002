// Package push delivers device notifications to mobile (Expo) and browser
// (Firebase Cloud Messaging) tokens.
package push

import (
	"context"
	"strings"
)

// Notification is the provider-neutral payload.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result counts per-token outcomes of one Send.
type Result struct {
	Sent   int
	Failed int
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.Sent += o.Sent
	r.Failed += o.Failed
}

// Sender delivers n to every token. A non-nil error means the provider
// could not be reached at all; per-token failures are counted in Result.
type Sender interface {
	Send(ctx context.Context, tokens []string, n Notification) (Result, error)
}

// IsExpoToken reports whether tok is an Expo push token.
func IsExpoToken(tok string) bool {
	return strings.HasPrefix(tok, "ExponentPushToken[") || strings.HasPrefix(tok, "ExpoPushToken[")
}

// Noop accepts every send and delivers nothing. It stands in for providers
// that are not configured.
type Noop struct{}

func (Noop) Send(context.Context, []string, Notification) (Result, error) {
	return Result{}, nil
}

// Multi routes Expo tokens to Expo and every other token to Web.
type Multi struct {
	Expo Sender
	Web  Sender
}

func (m Multi) Send(ctx context.Context, tokens []string, n Notification) (Result, error) {
	var expo, web []string
	for _, tok := range tokens {
		switch {
		case tok == "":
		case IsExpoToken(tok):
			expo = append(expo, tok)
		default:
			web = append(web, tok)
		}
	}

	var total Result
	var firstErr error
	for _, batch := range []struct {
		s      Sender
		tokens []string
	}{{m.Expo, expo}, {m.Web, web}} {
		if len(batch.tokens) == 0 || batch.s == nil {
			continue
		}
		res, err := batch.s.Send(ctx, batch.tokens, n)
		total.Add(res)
		if err != nil {
			total.Failed += len(batch.tokens) - res.Sent - res.Failed
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return total, firstErr
}

// chunk splits tokens into slices of at most size.
func chunk(tokens []string, size int) [][]string {
	var out [][]string
	for len(tokens) > size {
		out = append(out, tokens[:size])
		tokens = tokens[size:]
	}
	if len(tokens) > 0 {
		out = append(out, tokens)
	}
	return out
}
