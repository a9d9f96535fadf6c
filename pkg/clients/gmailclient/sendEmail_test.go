package gmailclient

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/carpool/pkg/notify"
)

var _ notify.Sender = (*Client)(nil)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("carpool@example.com", "Carpool", notify.Email{
		To:       "pat@example.com",
		Subject:  "Carpool cancelled: Swim",
		TextBody: "cancelled",
	})
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "To: pat@example.com")
	assert.Contains(t, string(raw), "Subject: Carpool cancelled: Swim")
}

func TestWait_RespectsInterval(t *testing.T) {
	c := &Client{interval: 50 * time.Millisecond}
	assert.NoError(t, c.wait(context.Background()), "first send does not wait")

	c.lastSendTime = time.Now()
	start := time.Now()
	require.NoError(t, c.wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	c := &Client{interval: time.Hour, lastSendTime: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.wait(ctx), context.Canceled)
}
