// Package notify delivers import outcomes to an external messaging
// webhook. Delivery is best-effort: bounded retries with exponential
// backoff, then log and drop. A notification failure never reaches the
// import pipeline, whose transaction has already committed.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"herdbook/internal/bus"
	"herdbook/internal/core"
)

const (
	DefaultMaxAttempts    = 3
	DefaultBackoffBase    = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second

	telegramAPIFormat = "https://api.telegram.org/bot%s/sendMessage"
)

// Config configures a Notifier. Either WebhookURL or BotToken+ChatID
// must be set for the notifier to be enabled.
type Config struct {
	WebhookURL     string
	BotToken       string
	ChatID         string
	RawPayload     bool // POST the plain message text instead of the JSON envelope
	MaxAttempts    int
	BackoffBase    time.Duration
	RequestTimeout time.Duration
}

// Enabled reports whether the config names a deliverable destination.
func (c Config) Enabled() bool {
	return c.WebhookURL != "" || (c.BotToken != "" && c.ChatID != "")
}

// Notifier renders outcomes into messages and POSTs them to the
// configured webhook.
type Notifier struct {
	cfg    Config
	url    string
	client *http.Client
}

// New creates a Notifier. Returns nil when cfg is not enabled.
func New(cfg Config) *Notifier {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	url := cfg.WebhookURL
	if url == "" {
		url = fmt.Sprintf(telegramAPIFormat, cfg.BotToken)
	}

	return &Notifier{
		cfg:    cfg,
		url:    url,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Register subscribes n to the import events on b. A nil notifier
// (unconfigured) subscribes to nothing at all, so a disabled deployment
// pays no per-event cost.
func (n *Notifier) Register(b *bus.Bus) {
	if n == nil {
		return
	}
	b.Subscribe(bus.ImportCompleted, n.handle)
	b.Subscribe(bus.ImportFailed, n.handle)
	b.Subscribe(bus.ImportSkipped, n.handle)
}

func (n *Notifier) handle(e bus.Event) {
	out, ok := e.Payload.(core.Outcome)
	if !ok {
		return
	}
	n.Notify(out)
}

// Notify builds the message for out and delivers it. Never returns an
// error: exhausted retries are logged and dropped.
func (n *Notifier) Notify(out core.Outcome) {
	n.send(buildMessage(out))
}

// buildMessage renders the title / body / bullet lines for an outcome.
// Dynamic text is escaped for markup-sensitive transports.
func buildMessage(out core.Outcome) string {
	var b strings.Builder

	status := "completed"
	if !out.Success {
		if out.Message == "duplicate source" {
			status = "skipped"
		} else {
			status = "failed"
		}
	}

	fmt.Fprintf(&b, "<b>Herdbook import %s: %s</b>\n", status, html.EscapeString(string(out.Category)))
	fmt.Fprintf(&b, "source: %s\n", html.EscapeString(out.SourceName))

	if out.Success {
		fmt.Fprintf(&b, "validated %d, errored %d\n", out.Validated, out.Errored)
		fmt.Fprintf(&b, "added %d, removed %d\n", len(out.Added), len(out.Removed))
	} else {
		fmt.Fprintf(&b, "%s\n", html.EscapeString(out.Message))
	}

	for _, rowErr := range out.RowErrors {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(rowErr.Error()))
	}
	if out.Errored > len(out.RowErrors) && len(out.RowErrors) > 0 {
		fmt.Fprintf(&b, "• … and %d more\n", out.Errored-len(out.RowErrors))
	}

	return strings.TrimRight(b.String(), "\n")
}

type webhookPayload struct {
	ChatID                string `json:"chat_id,omitempty"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// send delivers text with bounded retry: attempt k sleeps
// backoffBase·2^(k-1) before retrying. After the last attempt the
// message is dropped with an error log.
func (n *Notifier) send(text string) {
	body, contentType := n.encode(text)

	delay := n.cfg.BackoffBase
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		err := n.post(body, contentType)
		if err == nil {
			return
		}

		if attempt == n.cfg.MaxAttempts {
			slog.Error("notification dropped after exhausting retries",
				"attempts", attempt,
				"error", err)
			return
		}

		slog.Warn("notification attempt failed, retrying",
			"attempt", attempt,
			"retry_delay", delay,
			"error", err)
		time.Sleep(delay)
		delay *= 2
	}
}

func (n *Notifier) encode(text string) ([]byte, string) {
	if n.cfg.RawPayload {
		return []byte(text), "text/plain; charset=utf-8"
	}
	body, _ := json.Marshal(webhookPayload{
		ChatID:                n.cfg.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	return body, "application/json"
}

func (n *Notifier) post(body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
