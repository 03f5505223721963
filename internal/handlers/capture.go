package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/PratikDhanave/epcis-query-service/internal/auth"
	"github.com/PratikDhanave/epcis-query-service/internal/models"
	"github.com/PratikDhanave/epcis-query-service/internal/store"
)

// RegisterCaptureRoutes registers the capture endpoint.
//
// POST /capture
// - Requires X-API-Key; the authenticated user is recorded on the request
// - Durable: returns success only after the store commits
// - Events are stored as given; record time and capture id are assigned here
//
// onCaptured, when set, runs after each successful capture.
func RegisterCaptureRoutes(r gin.IRoutes, st store.EventStore, onCaptured func()) {
	r.POST("/capture", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		var req models.Request
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		req.ID = 0
		req.UserID = auth.UserID(c)

		resp, err := st.Capture(c.Request.Context(), &req)
		if err != nil {
			log.Error().Err(err).Str("capture_id", req.CaptureID).Msg("capture failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db insert failed"})
			return
		}

		log.Debug().
			Str("capture_id", resp.CaptureID).
			Int("events", resp.EventCount).
			Msg("request captured")

		if onCaptured != nil {
			onCaptured()
		}
		c.JSON(http.StatusCreated, resp)
	})
}
