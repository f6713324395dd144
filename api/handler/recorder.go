package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/recorder"
)

// CreateRecorder returns a handler for POST /api/v1/recorder/sessions.
// The response carries the subscription topic paths for frames and actions.
func CreateRecorder(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateRecorderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		sess, err := m.Create(c.Request.Context(), req.URL, req.FrameRate)
		if err != nil {
			respondError(c, err)
			return
		}

		base := "/api/v1/recorder/sessions/" + sess.ID
		c.JSON(http.StatusCreated, models.CreateRecorderResponse{
			Success: true,
			Session: sess.Info(),
			Topics: map[string]string{
				"frames":  base + "/frames",
				"actions": base + "/actions/stream",
			},
		})
	}
}

// ListRecorders returns a handler for GET /api/v1/recorder/sessions.
func ListRecorders(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "sessions": m.List()})
	}
}

// GetRecorder returns a handler for GET /api/v1/recorder/sessions/:id.
func GetRecorder(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session": sess.Info()})
	}
}

// StartRecorder returns a handler for POST /api/v1/recorder/sessions/:id/start.
func StartRecorder(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Start(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// StopRecorder returns a handler for POST /api/v1/recorder/sessions/:id/stop.
func StopRecorder(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Stop(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// RecorderActions returns a handler for GET /api/v1/recorder/sessions/:id/actions.
func RecorderActions(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		acts := sess.CapturedActions()
		c.JSON(http.StatusOK, gin.H{"success": true, "actions": acts, "count": len(acts)})
	}
}

// CloseRecorder returns a handler for DELETE /api/v1/recorder/sessions/:id.
func CloseRecorder(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Close(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// StreamFrames returns the SSE handler for the frames topic.
func StreamFrames(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		sub := sess.Frames().Subscribe()
		defer sub.Cancel()

		sseHeaders(c)
		c.Stream(func(w io.Writer) bool {
			select {
			case snap := <-sub.C:
				c.SSEvent("frame", snap)
				return true
			case <-sub.Done:
				return false
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

// StreamActions returns the SSE handler for the actions topic.
func StreamActions(m *recorder.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		sub := sess.Actions().Subscribe()
		defer sub.Cancel()

		sseHeaders(c)
		c.Stream(func(w io.Writer) bool {
			select {
			case action := <-sub.C:
				c.SSEvent("action", action)
				return true
			case <-sub.Done:
				return false
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	fmt.Fprintf(c.Writer, ": connected\n\n")
	c.Writer.Flush()
}
