package web

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/phasetrack/pkg/models"
	"github.com/dukex/phasetrack/pkg/notifier"
	"github.com/gofiber/fiber/v3"
)

// StreamEvents serves GET /events as a server-sent event stream. The first frame
// confirms the subscription; the stream ends when the client goes away, the
// subscriber is evicted or the broadcaster shuts down.
func (h *APIHandlers) StreamEvents(c fiber.Ctx) error {
	subscription := h.broadcaster.Subscribe(notifier.Filter{Area: c.Query("area")})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
	c.Status(fiber.StatusOK)

	logger := h.logger.With("subscription_id", subscription.ID)
	logger.Info("Event stream opened", "area", subscription.Filter.Area)

	c.Response().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer subscription.Close()

		err := writeEvent(w, models.ChangeEvent{
			ID:        subscription.ID,
			Kind:      models.ChangeConnected,
			Type:      models.TypeConnectionConfirmed,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return
		}

		for event := range subscription.Events() {
			err := writeEvent(w, event)
			if err != nil {
				logger.Info("Event stream closed by client", "error", err)

				return
			}
		}

		logger.Info("Event stream ended by server")
	})

	return nil
}

// writeEvent writes one "data: <json>\n\n" frame and flushes it.
func writeEvent(w *bufio.Writer, event models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}

	return w.Flush()
}
