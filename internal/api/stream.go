package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/aiqueue"
	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/eventbus"
	"github.com/medibrief/api/internal/middleware"
)

const (
	streamHeartbeatInterval = 15 * time.Second
	streamHardCap           = 2 * time.Minute
)

// StreamHandler implements the job push-stream endpoint (C9). It writes
// raw "data: {json}\n\n" frames via http.Flusher rather than gin's SSEvent
// helper, since the wire format here is the job Event shape, not a
// generic named-event envelope.
type StreamHandler struct {
	queue  *aiqueue.Queue
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewStreamHandler(queue *aiqueue.Queue, bus *eventbus.Bus, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{queue: queue, bus: bus, logger: logger}
}

// Stream handles GET /ai/stream/:jobId.
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		fail(c, apperr.Validation("invalid job id"))
		return
	}

	job, err := h.queue.Load(ctx, jobID)
	if err != nil {
		h.logger.Error("load job for stream", zap.Error(err))
		fail(c, apperr.Internal("load job failed"))
		return
	}
	if job == nil || job.ClinicID != middleware.GetClinicID(c) {
		fail(c, apperr.NotFound("job not found"))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fail(c, apperr.Internal("streaming unsupported"))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	if job.State.IsTerminal() {
		writeEvent(c, aiqueue.Event{State: job.State, SummaryID: job.SummaryID, FailedReason: failedReasonPtr(job.FailedReason)})
		flusher.Flush()
		return
	}

	writeEvent(c, aiqueue.Event{State: job.State})
	flusher.Flush()

	sub, err := h.bus.Subscribe(ctx, jobID)
	if err != nil {
		h.logger.Error("subscribe to job events", zap.Error(err))
		writeEvent(c, aiqueue.Event{State: "timeout"})
		flusher.Flush()
		return
	}
	defer sub.Close()

	deadline := time.NewTimer(streamHardCap)
	defer deadline.Stop()
	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			writeEvent(c, aiqueue.Event{State: "timeout"})
			flusher.Flush()
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		case msg, open := <-sub.Channel():
			if !open {
				return
			}
			var event aiqueue.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("malformed job event payload", zap.Error(err))
				continue
			}
			writeEvent(c, event)
			flusher.Flush()
			if event.State.IsTerminal() {
				return
			}
		}
	}
}

func writeEvent(c *gin.Context, event aiqueue.Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", raw)
}

func failedReasonPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
