package smtpclient

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jakechorley/carpool/internal/config"
	"github.com/jakechorley/carpool/pkg/clients/mailmsg"
	"github.com/jakechorley/carpool/pkg/notify"
)

// Client sends notify emails through an SMTP relay
type Client struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewClient creates an SMTP client for the given server settings
func NewClient(cfg config.SMTPConfig, from, fromName string) *Client {
	return &Client{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     from,
		fromName: fromName,
	}
}

// Send dials the relay and delivers one email. gomail has no context
// support, so ctx is only checked before dialing.
func (c *Client) Send(ctx context.Context, email notify.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.dialer.DialAndSend(mailmsg.NewMessage(c.from, c.fromName, email)); err != nil {
		return fmt.Errorf("failed to send email via smtp: %w", err)
	}
	return nil
}
