package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

const fcmSendURL = "https://fcm.googleapis.com/fcm/send"

// FCMPush publishes the alert to a Firebase Cloud Messaging topic.
type FCMPush struct {
	client    *breakerClient
	endpoint  string
	serverKey string
	topic     string
	region    string
}

func NewFCMPush(client *breakerClient, serverKey, topic, region string) *FCMPush {
	return &FCMPush{
		client:    client,
		endpoint:  fcmSendURL,
		serverKey: serverKey,
		topic:     topic,
		region:    region,
	}
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmMessage struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
}

func (f *FCMPush) Name() string { return "push" }

func (f *FCMPush) Send(ctx context.Context, a domain.Alert) error {
	payload, err := json.Marshal(f.message(a))
	if err != nil {
		return fmt.Errorf("marshal fcm message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build fcm request: %w", err)
	}
	req.Header.Set("Authorization", "key="+f.serverKey)
	req.Header.Set("Content-Type", "application/json")

	if err := f.client.do(req); err != nil {
		return fmt.Errorf("push to topic %s: %w", f.topic, err)
	}
	return nil
}

func (f *FCMPush) message(a domain.Alert) fcmMessage {
	return fcmMessage{
		To: "/topics/" + f.topic,
		Notification: fcmNotification{
			Title: pushTitle(f.region, a),
			Body:  a.MessageEN,
		},
		Data: map[string]string{
			"alert_id":   a.ID,
			"level":      string(a.Level),
			"type":       string(a.Type),
			"lat":        strconv.FormatFloat(a.Location.Lat, 'f', -1, 64),
			"lng":        strconv.FormatFloat(a.Location.Lng, 'f', -1, 64),
			"message_hi": a.MessageHI,
		},
	}
}
