package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tennisweb/internal/errors"
	"tennisweb/models"
)

type chatRequest struct {
	Messages []models.ChatTurn `json:"messages"`
}

// handleChat streams the assistant's reply as plain text. Headers are held
// back until the first token arrives so a pre-stream failure can still be
// reported as a JSON error with a real status code.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages is required"})
		return
	}

	started := false
	sink := func(token string) error {
		if !started {
			started = true
			c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
			c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
			c.Writer.WriteHeader(http.StatusOK)
		}
		if _, err := c.Writer.WriteString(token); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := s.chat.Reply(c.Request.Context(), req.Messages, sink)
	if err != nil && !started {
		log := requestLog(c, s.log)
		log.Warn().Str("code", errors.GetCode(err)).Msg("chat reply failed")
		writeChatError(c, err)
		return
	}
	if err != nil {
		// The stream already carried bytes; nothing useful can be sent now.
		log := requestLog(c, s.log)
		log.Warn().Str("code", errors.GetCode(err)).Msg("chat stream ended with error")
	}
}

func writeChatError(c *gin.Context, err error) {
	switch errors.GetCode(err) {
	case errors.CodeConfigInvalid:
		c.JSON(http.StatusInternalServerError, gin.H{"error": errMessage(err)})
	case errors.CodeUpstreamError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM request failed", "detail": errors.GetDetail(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat request failed"})
	}
}
