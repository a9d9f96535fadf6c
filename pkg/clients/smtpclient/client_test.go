package smtpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/carpool/internal/config"
	"github.com/jakechorley/carpool/pkg/notify"
)

var _ notify.Sender = (*Client)(nil)

func TestNewClient(t *testing.T) {
	c := NewClient(config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"}, "carpool@example.com", "Carpool")

	assert.Equal(t, "smtp.example.com", c.dialer.Host)
	assert.Equal(t, 587, c.dialer.Port)
	assert.Equal(t, "u", c.dialer.Username)
}

func TestSend_CancelledContext(t *testing.T) {
	c := NewClient(config.SMTPConfig{Host: "127.0.0.1", Port: 1}, "carpool@example.com", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Send(ctx, notify.Email{To: "pat@example.com", Subject: "s", TextBody: "b"})
	assert.ErrorIs(t, err, context.Canceled)
}
