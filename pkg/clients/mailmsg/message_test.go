package mailmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/carpool/pkg/notify"
)

func TestRender_MultipartWithHTML(t *testing.T) {
	email := notify.Email{
		To:       "pat@example.com",
		ToName:   "Pat",
		Subject:  "Carpool cancelled: Swim",
		TextBody: "Your ride is cancelled.",
		HTMLBody: "<p>Your ride is cancelled.</p>",
	}

	raw, err := Render(NewMessage("carpool@example.com", "Carpool", email))

	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `From: "Carpool" <carpool@example.com>`)
	assert.Contains(t, out, `To: "Pat" <pat@example.com>`)
	assert.Contains(t, out, "Subject: Carpool cancelled: Swim")
	assert.Contains(t, out, "multipart/alternative")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "text/html")
}

func TestRender_TextOnly(t *testing.T) {
	raw, err := Render(NewMessage("carpool@example.com", "", notify.Email{
		To:       "pat@example.com",
		Subject:  "Hello",
		TextBody: "plain",
	}))

	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, "From: carpool@example.com")
	assert.NotContains(t, out, "multipart/alternative")
	assert.Contains(t, out, "text/plain")
}
