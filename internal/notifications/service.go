package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"peiyin/internal/config"
)

const userAgent = "peiyin/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventJobFailed    Event = "job_failed"
	EventJobCompleted Event = "job_completed"
	EventTest         Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]string

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		completions: cfg.Notifications.NotifyCompletions,
	}
}

// Noop returns a Service that drops every event.
func Noop() Service {
	return noopService{}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	completions bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	kind := labelFor(payload.value("kind"))
	job := payload.value("job")
	switch event {
	case EventJobFailed:
		errText := payload.value("error")
		if errText == "" {
			errText = "unknown error"
		}
		body := fmt.Sprintf("❌ %s failed", kind)
		if job != "" {
			body += ": " + job
		}
		body += "\n" + errText
		return message{
			title:    "peiyin - Job Failed",
			body:     body,
			tags:     []string{"peiyin", payload.value("kind"), "failed"},
			priority: "high",
		}, true
	case EventJobCompleted:
		if !n.completions {
			return message{}, false
		}
		body := fmt.Sprintf("✅ %s ready", kind)
		if job != "" {
			body += ": " + job
		}
		if output := payload.value("output"); output != "" {
			body += "\nOutput: " + output
		}
		return message{
			title: "peiyin - Job Complete",
			body:  body,
			tags:  []string{"peiyin", payload.value("kind"), "completed"},
		}, true
	case EventTest:
		return message{
			title:    "peiyin - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"peiyin", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func labelFor(kind string) string {
	switch kind {
	case "vocal_removal":
		return "Vocal removal"
	case "composite_dubbing":
		return "Dubbing"
	case "":
		return "Job"
	default:
		return kind
	}
}

func (p Payload) value(key string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p[key])
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if tags := compact(msg.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
