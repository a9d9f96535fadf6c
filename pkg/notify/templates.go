package notify

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/jakechorley/carpool/pkg/db"
)

// Email is a rendered message ready to hand to a Sender
type Email struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string
}

// cancellationData is the template input for one guardian
type cancellationData struct {
	GuardianName string
	DriverName   string
	ActivityName string
	ActivityDate string
	Reason       string
	Children     []childRide
}

type childRide struct {
	Name string
	Legs string
}

// BuildCancellationEmails renders one email per guardian address named in the
// notice. A guardian with several children on the offer gets a single email
// listing all of them. Parties without an email address are returned in skipped.
// When the HTML part cannot be rendered the email is still returned as plain
// text and the render failure is reported in err.
func BuildCancellationEmails(notice db.CancellationNotice) (emails []Email, skipped []db.AffectedParty, err error) {
	type group struct {
		name     string
		parties  []db.AffectedParty
		children map[string]bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, p := range notice.Parties {
		addr := strings.TrimSpace(p.GuardianEmail)
		if addr == "" {
			skipped = append(skipped, p)
			continue
		}
		key := strings.ToLower(addr)
		g, ok := groups[key]
		if !ok {
			g = &group{name: p.GuardianName, children: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		if g.children[p.ParticipantID] {
			continue
		}
		g.children[p.ParticipantID] = true
		g.parties = append(g.parties, p)
	}

	for _, key := range order {
		g := groups[key]
		data := cancellationData{
			GuardianName: g.name,
			DriverName:   notice.DriverName,
			Reason:       notice.Reason,
		}
		if data.DriverName == "" {
			data.DriverName = "Your driver"
		}

		first := g.parties[0]
		data.ActivityName = first.ActivityName
		data.ActivityDate = formatDate(first.ActivityDate)

		sort.SliceStable(g.parties, func(i, j int) bool {
			return g.parties[i].ParticipantName < g.parties[j].ParticipantName
		})
		for _, p := range g.parties {
			data.Children = append(data.Children, childRide{Name: p.ParticipantName, Legs: p.Direction.Label()})
		}

		to := strings.TrimSpace(first.GuardianEmail)
		html, renderErr := buildCancellationHTML(data)
		if renderErr != nil {
			err = errors.Join(err, fmt.Errorf("html body for %s: %w", to, renderErr))
		}

		emails = append(emails, Email{
			To:       to,
			ToName:   g.name,
			Subject:  fmt.Sprintf("Carpool cancelled: %s", data.ActivityName),
			TextBody: buildCancellationText(data),
			HTMLBody: html,
		})
	}

	return emails, skipped, err
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Monday 2 January 2006, 15:04")
}

func buildCancellationText(data cancellationData) string {
	var buf bytes.Buffer
	if data.GuardianName != "" {
		buf.WriteString(fmt.Sprintf("Hi %s,\n\n", data.GuardianName))
	} else {
		buf.WriteString("Hi,\n\n")
	}
	buf.WriteString(fmt.Sprintf("%s has cancelled their carpool for %s", data.DriverName, data.ActivityName))
	if data.ActivityDate != "" {
		buf.WriteString(fmt.Sprintf(" on %s", data.ActivityDate))
	}
	buf.WriteString(".\n\n")
	if data.Reason != "" {
		buf.WriteString(fmt.Sprintf("Reason: %s\n\n", data.Reason))
	}
	buf.WriteString("The following seats have been released:\n")
	for _, c := range data.Children {
		buf.WriteString(fmt.Sprintf("  - %s (%s)\n", c.Name, c.Legs))
	}
	buf.WriteString("\nPlease arrange another ride for these legs.\n")
	return buf.String()
}

var cancellationHTML = template.Must(template.New("cancellation").Parse(cancellationHTMLTemplate))

// buildCancellationHTML returns an empty body on error so a partial render is never sent
func buildCancellationHTML(data cancellationData) (string, error) {
	var buf bytes.Buffer
	if err := cancellationHTML.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const cancellationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Carpool cancelled</title>
</head>
<body style="margin: 0; padding: 24px; font-family: Arial, sans-serif; color: #374151; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; margin: 0 auto; background-color: #ffffff; border-radius: 8px;">
    <tr>
      <td style="padding: 24px 32px; border-bottom: 1px solid #e5e7eb;">
        <h1 style="margin: 0; font-size: 20px; color: #b91c1c;">Carpool cancelled</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 24px 32px;">
        <p>Hi{{if .GuardianName}} {{.GuardianName}}{{end}},</p>
        <p>{{.DriverName}} has cancelled their carpool for <strong>{{.ActivityName}}</strong>{{if .ActivityDate}} on {{.ActivityDate}}{{end}}.</p>
        {{if .Reason}}<p style="color: #6b7280;">Reason: {{.Reason}}</p>{{end}}
        <p>The following seats have been released:</p>
        <ul>
          {{range .Children}}<li>{{.Name}} ({{.Legs}})</li>
          {{end}}
        </ul>
        <p>Please arrange another ride for these legs.</p>
      </td>
    </tr>
  </table>
</body>
</html>
`
