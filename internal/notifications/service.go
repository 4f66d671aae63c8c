package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"microlesson/internal/config"
)

const userAgent = "Microlesson-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyIngestCompleted(ctx context.Context, title string) error
	NotifyLessonCompleted(ctx context.Context, title string, segments int) error
	NotifyVideoFailed(ctx context.Context, title, stage string, failure error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Microlesson - Ingested",
		message: fmt.Sprintf("Queued for processing: %s", title),
		tags:    []string{"microlesson", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLessonCompleted(ctx context.Context, title string, segments int) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Lesson ready: %s", title)
	if segments > 0 {
		message = fmt.Sprintf("%s (%d segments)", message, segments)
	}
	data := payload{
		title:    "Microlesson - Complete",
		message:  message,
		tags:     []string{"microlesson", "lesson", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyVideoFailed(ctx context.Context, title, stage string, failure error) error {
	var builder strings.Builder
	builder.WriteString("Failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" during ")
		builder.WriteString(stage)
	}
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(": ")
		builder.WriteString(title)
	}
	if failure != nil {
		builder.WriteString("\n")
		builder.WriteString(strings.TrimSpace(failure.Error()))
	}

	data := payload{
		title:    "Microlesson - Error",
		message:  builder.String(),
		tags:     []string{"microlesson", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Microlesson - Test",
		message:  "Notification system test",
		tags:     []string{"microlesson", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifyIngestCompleted(context.Context, string) error            { return nil }
func (noopService) NotifyLessonCompleted(context.Context, string, int) error       { return nil }
func (noopService) NotifyVideoFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
