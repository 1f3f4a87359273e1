package homework

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"repetika/m/v2/app/config"
	"time"

	log "github.com/sirupsen/logrus"
	backoff "gopkg.in/cenkalti/backoff.v1"
)

const emailEndpoint = "https://api.brevo.com/v3/smtp/email"

type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Mailer delivers transactional email through the Brevo HTTP API.
type Mailer struct {
	apiKey   string
	fromAddr string
	fromName string
	client   *http.Client
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		apiKey:   cfg.EmailAPIKey,
		fromAddr: cfg.EmailFromAddress,
		fromName: cfg.EmailFromName,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendRequest struct {
	Sender  contact   `json:"sender"`
	To      []contact `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"htmlContent"`
}

type contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.apiKey == "" {
		return fmt.Errorf("Send: email API key is not configured")
	}

	body, err := json.Marshal(sendRequest{
		Sender:  contact{Email: m.fromAddr, Name: m.fromName},
		To:      []contact{{Email: to}},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return err
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, emailEndpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", m.apiKey)

		resp, err := m.client.Do(req)
		if err != nil {
			log.Warnf("Send: email request to %s failed, will retry: %v", to, err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("email API returned status %d", resp.StatusCode)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	if err := backoff.Retry(operation, b); err != nil {
		return fmt.Errorf("Send: delivery to %s failed: %w", to, err)
	}
	return nil
}
