package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/compozy/storepulse/engine/core"
	"github.com/compozy/storepulse/engine/llm"
	"github.com/gin-gonic/gin"
)

// ChatAssistant answers conversations with streamed events
type ChatAssistant interface {
	HealthCheck(ctx context.Context) error
	Relay(ctx context.Context, history []llm.Message, sink llm.Sink) error
}

var _ ChatAssistant = (*llm.Assistant)(nil)

// ChatRequest is the body of POST /admin/assistant/chat
type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
}

// handleChat validates the conversation, checks the upstream model and then
// streams relay events as server-sent events. Failures before the first
// event are plain JSON errors.
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, core.InvalidInput("invalid request body: %v", err))
		return
	}
	if err := llm.ValidateMessages(req.Messages); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.assistant.HealthCheck(ctx); err != nil {
		respondError(c, err)
		return
	}

	assistantStreamsActive.Inc()
	defer assistantStreamsActive.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sink := func(e llm.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.SSEvent(string(e.Type), e)
		c.Writer.Flush()
		return nil
	}

	if err := s.assistant.Relay(ctx, req.Messages, sink); err != nil {
		l := loggerFrom(c)
		if errors.Is(err, context.Canceled) {
			l.Info("Assistant client disconnected")
			return
		}
		l.Warn("Assistant relay ended with error", "error", err)
	}
}
