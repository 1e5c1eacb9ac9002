package push

import (
	"context"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// fcmBatch is the most tokens one multicast may address.
const fcmBatch = 500

type multicaster interface {
	SendMulticast(ctx context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCM sends browser notifications through Firebase Cloud Messaging.
type FCM struct {
	client multicaster
}

// NewFCM initializes a Firebase app from a service account file.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCM{client: client}, nil
}

func (f *FCM) Send(ctx context.Context, tokens []string, n Notification) (Result, error) {
	var res Result
	for _, batch := range chunk(tokens, fcmBatch) {
		br, err := f.client.SendMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Data:         n.Data,
			Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		})
		if err != nil {
			return res, err
		}
		res.Sent += br.SuccessCount
		res.Failed += br.FailureCount
	}
	return res, nil
}
