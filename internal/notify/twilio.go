package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/couchcryptid/coastal-alert-service/internal/domain"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioSMS sends the bilingual alert text to every recipient through the
// Twilio Messages API.
type TwilioSMS struct {
	client     *breakerClient
	baseURL    string
	accountSID string
	authToken  string
	from       string
	recipients []string
}

func NewTwilioSMS(client *breakerClient, accountSID, authToken, from string, recipients []string) *TwilioSMS {
	return &TwilioSMS{
		client:     client,
		baseURL:    twilioBaseURL,
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		recipients: recipients,
	}
}

func (t *TwilioSMS) Name() string { return "sms" }

// Send messages each recipient in turn. Every recipient is attempted; the
// returned error joins all per-recipient failures.
func (t *TwilioSMS) Send(ctx context.Context, a domain.Alert) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	body := smsBody(a)

	var errs []error
	for _, to := range t.recipients {
		form := url.Values{}
		form.Set("To", to)
		form.Set("From", t.from)
		form.Set("Body", body)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("build twilio request: %w", err)
		}
		req.SetBasicAuth(t.accountSID, t.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		if err := t.client.do(req); err != nil {
			errs = append(errs, fmt.Errorf("sms to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func smsBody(a domain.Alert) string {
	return a.MessageEN + "\n" + a.MessageHI
}
