// Package mailmsg renders notify emails into RFC 5322 messages with gomail.
package mailmsg

import (
	"bytes"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jakechorley/carpool/pkg/notify"
)

// NewMessage builds a multipart/alternative message with a plain text part
// and, when present, an HTML part
func NewMessage(from, fromName string, email notify.Email) *gomail.Message {
	m := gomail.NewMessage()
	if fromName != "" {
		m.SetAddressHeader("From", from, fromName)
	} else {
		m.SetHeader("From", from)
	}
	if email.ToName != "" {
		m.SetAddressHeader("To", email.To, email.ToName)
	} else {
		m.SetHeader("To", email.To)
	}
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.TextBody)
	if email.HTMLBody != "" {
		m.AddAlternative("text/html", email.HTMLBody)
	}
	return m
}

// Render writes the message to bytes
func Render(m *gomail.Message) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}
	return buf.Bytes(), nil
}
