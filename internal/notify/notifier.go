package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/kpant2190/Opportender-Backend/pkg/models"
)

// maxSlackLen keeps headroom under Slack's 3000-char block limit.
const maxSlackLen = 2900

// Config holds notification destinations. Slack is enabled by a webhook
// URL; email needs every SMTP field set.
type Config struct {
	SlackWebhookURL string

	EmailHost string
	EmailPort int
	EmailUser string
	EmailPass string
	EmailFrom string
	EmailTo   string
}

// Notifier delivers new-tender notifications to the configured
// destinations. Delivery is best-effort: failures are logged, never
// returned, and a notifier with no destinations is a safe no-op.
type Notifier struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a notifier for the configured destinations.
func New(config Config, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		config:     config,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		sendMail:   smtp.SendMail,
	}
	if config.SlackWebhookURL != "" {
		logger.Info("notifier: Slack enabled")
	}
	if n.emailEnabled() {
		logger.Info("notifier: email enabled")
	}
	if config.SlackWebhookURL == "" && !n.emailEnabled() {
		logger.Debug("notifier: no destinations configured, notifications will be skipped")
	}
	return n
}

func (n *Notifier) emailEnabled() bool {
	c := n.config
	return c.EmailHost != "" && c.EmailPort != 0 && c.EmailUser != "" &&
		c.EmailPass != "" && c.EmailFrom != "" && c.EmailTo != ""
}

// NotifyTender sends a formatted notification for a single tender to all
// configured destinations.
func (n *Notifier) NotifyTender(ctx context.Context, t models.Tender) {
	text := formatText(t)

	if n.config.SlackWebhookURL != "" {
		n.slack(ctx, text)
	}
	if n.emailEnabled() {
		title := t.Title
		if title == "" {
			title = "[Untitled]"
		}
		n.email("New Tender: "+title, text, formatHTML(t))
	}
}

// NotifyBatch sends a single digest covering multiple tenders.
func (n *Notifier) NotifyBatch(ctx context.Context, tenders []models.Tender, title string) {
	if len(tenders) == 0 {
		return
	}
	if title == "" {
		title = "New Tenders Digest"
	}

	if n.config.SlackWebhookURL != "" {
		parts := make([]string, 0, len(tenders))
		for _, t := range tenders {
			parts = append(parts, formatText(t))
		}
		msg := strings.Join(parts, "\n\n")
		const marker = "\n…(truncated)"
		if len(msg) > maxSlackLen {
			msg = msg[:maxSlackLen-len(marker)] + marker
		}
		n.slack(ctx, msg)
	}

	if n.emailEnabled() {
		htmlParts := make([]string, 0, len(tenders))
		textParts := make([]string, 0, len(tenders))
		for _, t := range tenders {
			htmlParts = append(htmlParts, formatHTML(t))
			textParts = append(textParts, formatText(t))
		}
		body := fmt.Sprintf("<h3>%s</h3>\n%s", html.EscapeString(title), strings.Join(htmlParts, "\n"))
		n.email(title, strings.Join(textParts, "\n\n"), body)
	}
}

// slack posts a raw message to the incoming webhook, truncated to the
// block limit.
func (n *Notifier) slack(ctx context.Context, msg string) {
	if len(msg) > maxSlackLen {
		msg = msg[:maxSlackLen]
	}
	payload, err := json.Marshal(map[string]string{"text": msg})
	if err != nil {
		n.logger.Error("slack notify failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.SlackWebhookURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error("slack notify failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("slack notify failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Error("slack notify failed", "status", resp.StatusCode)
	}
}

// email sends a multipart plain+HTML message over SMTP with STARTTLS.
func (n *Notifier) email(subject, body, htmlBody string) {
	c := n.config
	addr := fmt.Sprintf("%s:%d", c.EmailHost, c.EmailPort)
	auth := smtp.PlainAuth("", c.EmailUser, c.EmailPass, c.EmailHost)

	msg := buildMIME(c.EmailFrom, c.EmailTo, subject, body, htmlBody)
	if err := n.sendMail(addr, auth, c.EmailFrom, []string{c.EmailTo}, msg); err != nil {
		n.logger.Error("email send failed", "error", err)
	}
}

// buildMIME assembles a multipart/alternative message when an HTML body is
// provided, plain text otherwise.
func buildMIME(from, to, subject, body, htmlBody string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(body)
		return b.Bytes()
	}

	const boundary = "opportender-alt"
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, body)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}

func formatText(t models.Tender) string {
	lines := []string{
		"*New Tender*: " + orDash(t.Title, "[Untitled]"),
		"Buyer: " + orDash(t.Buyer, "-"),
		"Closes: " + closes(t),
		"Value: " + valueStr(t.TenderValue),
		"Source: " + orDash(t.SourcePortal, "-"),
		"Link: " + orDash(t.Link, "-"),
	}
	return strings.Join(lines, "\n")
}

func formatHTML(t models.Tender) string {
	link := t.Link
	if link == "" {
		link = "#"
	}
	return fmt.Sprintf(
		"<div style='margin:12px 0;padding:10px;border:1px solid #eee;border-radius:8px;'>"+
			"<div style='font-weight:600;font-size:16px;margin-bottom:4px;'>%s</div>"+
			"<div><b>Buyer:</b> %s</div>"+
			"<div><b>Closes:</b> %s</div>"+
			"<div><b>Value:</b> %s</div>"+
			"<div><b>Source:</b> %s</div>"+
			"<div><a href='%s'>View opportunity</a></div>"+
			"</div>",
		html.EscapeString(orDash(t.Title, "[Untitled]")),
		html.EscapeString(orDash(t.Buyer, "-")),
		html.EscapeString(closes(t)),
		valueStr(t.TenderValue),
		html.EscapeString(orDash(t.SourcePortal, "-")),
		link,
	)
}

func closes(t models.Tender) string {
	if t.ClosingTS != "" {
		return t.ClosingTS
	}
	return orDash(t.ClosingDate, "-")
}

func valueStr(v *float64) string {
	if v == nil {
		return "-"
	}
	return "$" + formatAmount(*v)
}

// formatAmount renders 1234567.8 as "1,234,567.80".
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]

	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := strings.Join(groups, ",") + frac
	if neg {
		out = "-" + out
	}
	return out
}

func orDash(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
