package telemetry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/pkg/config"
	"github.com/compozy/storepulse/pkg/logger"
	"github.com/posthog/posthog-go"
)

// Event names sent to PostHog
const (
	EventToolCalled      = "storepulse_tool_called"
	EventReportGenerated = "storepulse_report_generated"
	EventAssistantChat   = "storepulse_assistant_chat"
)

// Tracker records usage events
type Tracker interface {
	Track(event string, properties map[string]any)
	Close() error
}

// Noop discards every event
type Noop struct{}

// Track implements Tracker
func (Noop) Track(string, map[string]any) {}

// Close implements Tracker
func (Noop) Close() error { return nil }

// PostHogTracker enqueues events on a PostHog client. Delivery is batched
// by the client; failures are logged and never surfaced to callers.
type PostHogTracker struct {
	client     posthog.Client
	distinctID string
	logger     *log.Logger
	closeOnce  sync.Once
}

// New returns a PostHog tracker when an API key is configured and a Noop
// tracker otherwise.
func New(cfg config.TelemetryConfig) (Tracker, error) {
	if !cfg.Enabled() {
		return Noop{}, nil
	}

	client, err := posthog.NewWithConfig(cfg.PostHogAPIKey, posthog.Config{
		Endpoint:  cfg.PostHogEndpoint,
		BatchSize: 50,
		Interval:  30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create posthog client: %w", err)
	}

	return NewPostHogTracker(client, cfg.DistinctID), nil
}

// NewPostHogTracker wraps an existing client. An empty distinctID falls
// back to the host name.
func NewPostHogTracker(client posthog.Client, distinctID string) *PostHogTracker {
	if distinctID == "" {
		distinctID = defaultDistinctID()
	}
	return &PostHogTracker{
		client:     client,
		distinctID: distinctID,
		logger:     logger.With("component", "telemetry"),
	}
}

// Track enqueues one event
func (t *PostHogTracker) Track(event string, properties map[string]any) {
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	err := t.client.Enqueue(posthog.Capture{
		DistinctId: t.distinctID,
		Event:      event,
		Properties: props,
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.logger.Warn("failed to enqueue telemetry event", "event", event, "error", err)
		return
	}
	t.logger.Debug("telemetry event enqueued", "event", event)
}

// Close flushes pending events
func (t *PostHogTracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.client.Close()
	})
	return err
}

// ErrorProperties describes err for an event payload
func ErrorProperties(err error) map[string]any {
	if err == nil {
		return map[string]any{"success": true}
	}
	props := map[string]any{"success": false}
	if code := core.CodeOf(err); code != "" {
		props["error_code"] = string(code)
	}
	return props
}

func defaultDistinctID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return core.NewID().String()
	}
	return "storepulse@" + host
}
