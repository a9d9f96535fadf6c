package gmailclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/jakechorley/carpool/pkg/clients/mailmsg"
	"github.com/jakechorley/carpool/pkg/notify"
)

const EmailInterval = 3 * time.Second

// Send sends one email through the Gmail API.
// Throttles requests to respect Gmail API rate limits
func (c *Client) Send(ctx context.Context, email notify.Email) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if err := c.wait(ctx); err != nil {
		return err
	}

	message, err := buildMessage(c.from, c.fromName, email)
	if err != nil {
		return err
	}

	if _, err := c.service.Users.Messages.Send(c.userID, message).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.lastSendTime = time.Now()
	return nil
}

// wait blocks until interval has passed since the previous send
func (c *Client) wait(ctx context.Context) error {
	if c.lastSendTime.IsZero() {
		return nil
	}
	elapsed := time.Since(c.lastSendTime)
	if elapsed >= c.interval {
		return nil
	}

	timer := time.NewTimer(c.interval - elapsed)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMessage(from, fromName string, email notify.Email) (*gmail.Message, error) {
	raw, err := mailmsg.Render(mailmsg.NewMessage(from, fromName, email))
	if err != nil {
		return nil, err
	}
	return &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}, nil
}
