package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
)

// EmailPublisher sends the newsletter as a multipart plain+HTML email, one
// message per subscriber.
type EmailPublisher struct {
	host       string
	port       int
	username   string
	password   string
	from       string
	recipients RecipientSource

	// sendMail is swapped out by tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailPublisher(host string, port int, username, password, from string, recipients RecipientSource) *EmailPublisher {
	return &EmailPublisher{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		from:       from,
		recipients: recipients,
		sendMail:   smtp.SendMail,
	}
}

func (p *EmailPublisher) Publish(ctx context.Context, letter *Newsletter) error {

	subscribers, err := p.recipients.ListSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("email: failed to list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		return fmt.Errorf("email: no subscribers to send to")
	}

	subject := fmt.Sprintf("%s - %s", letter.Title, letter.EndDate.Format("January 2, 2006"))
	htmlBody, err := renderHTML(letter)
	if err != nil {
		return fmt.Errorf("email: failed to render body: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	var failures []error
	for _, subscriber := range subscribers {
		msg := buildMessage(p.from, subscriber, subject, letter.Body, htmlBody)
		if err := p.sendMail(addr, auth, p.from, []string{subscriber}, msg); err != nil {
			logrus.Warnf("Failed to send email to %s: %v", subscriber, err)
			failures = append(failures, fmt.Errorf("email to %s: %w", subscriber, err))
			continue
		}
		logrus.Infof("Successfully sent email to %s", subscriber)
	}

	if len(failures) == len(subscribers) {
		return fmt.Errorf("email: all %d sends failed: %w", len(subscribers), errors.Join(failures...))
	}
	if len(failures) > 0 {
		return fmt.Errorf("email: %d of %d sends failed: %w", len(failures), len(subscribers), errors.Join(failures...))
	}
	return nil
}

const messageBoundary = "newsletter-boundary-4f2a"

func buildMessage(from, to, subject, plainBody, htmlBody string) []byte {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", to))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n\r\n", messageBoundary))

	sb.WriteString(fmt.Sprintf("--%s\r\n", messageBoundary))
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	sb.WriteString(plainBody)
	sb.WriteString("\r\n\r\nTo unsubscribe, reply with 'unsubscribe'.\r\n\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", messageBoundary))
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	sb.WriteString(htmlBody)
	sb.WriteString("\r\n")

	sb.WriteString(fmt.Sprintf("--%s--\r\n", messageBoundary))
	return []byte(sb.String())
}

// renderHTML converts the Markdown body and wraps it in the newsletter
// template. The title is lifted out of the first bolded line when the body
// starts with one.
func renderHTML(letter *Newsletter) (string, error) {

	title := letter.Title
	body := letter.Body
	if strings.HasPrefix(body, "**") {
		if end := strings.Index(body[2:], "**"); end > 0 {
			title = strings.Trim(body[2:2+end], `"`)
			body = strings.TrimSpace(body[2+end+2:])
		}
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8"><style>
body { font-family: 'Roboto', sans-serif; line-height: 1.8; color: #333333; max-width: 850px; margin: 0 auto; padding: 30px; background: #fef9e7; }
h1 { color: #008080; background: #cce5e5; font-size: 32px; text-align: center; padding: 10px 20px; border-radius: 10px; }
a { color: #0077b6; text-decoration: none; }
.section { background-color: #e6f4ea; padding: 20px; border-radius: 12px; margin-bottom: 25px; }
.footer { text-align: center; font-size: 14px; color: #666666; margin-top: 30px; padding-top: 20px; border-top: 1px solid #dddddd; }
</style></head><body>`)
	sb.WriteString(fmt.Sprintf(`<div style="text-align: center;"><h1>%s</h1></div>`, title))
	sb.WriteString(`<div class="section">`)
	sb.WriteString(buf.String())
	sb.WriteString(`</div><div class="footer">`)
	sb.WriteString(`<p><small>To unsubscribe, reply with 'unsubscribe'.</small></p>`)
	sb.WriteString(`<p><small>Powered by AITrendSpot</small></p>`)
	sb.WriteString(`</div></body></html>`)

	return sb.String(), nil
}
