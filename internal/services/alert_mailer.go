package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/poofware/fleet-service/internal/config"
	"github.com/poofware/fleet-service/internal/constants"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// AlertSender delivers an expiry alert to the operations mailbox.
type AlertSender interface {
	SendAlert(ctx context.Context, subject, plainText, html string) error
}

type sendgridAlertSender struct {
	client *sendgrid.Client
	cfg    *config.Config
}

// NewSendgridAlertSender returns nil when no API key or recipient is
// configured; the sweep then only logs.
func NewSendgridAlertSender(cfg *config.Config) AlertSender {
	if cfg.SendgridAPIKey == "" || cfg.AlertEmailTo == "" {
		return nil
	}
	return &sendgridAlertSender{client: sendgrid.NewSendClient(cfg.SendgridAPIKey), cfg: cfg}
}

func (s *sendgridAlertSender) SendAlert(ctx context.Context, subject, plainText, html string) error {
	from := mail.NewEmail(constants.AlertFromName, s.cfg.LDFlag_SendgridFromEmail)
	to := mail.NewEmail("", s.cfg.AlertEmailTo)

	msg := mail.NewSingleEmail(from, subject, to, plainText, html)
	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
