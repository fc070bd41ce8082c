package ui

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tennisweb/internal/errors"
	"tennisweb/models"
)

type matchAIRequest struct {
	Exclude []int64 `json:"exclude"`
	Limit   int     `json:"limit"`
	Model   string  `json:"model"`
}

// handleMatchAI runs one AI recommendation round on behalf of the caller,
// forwarding their bearer token to the backend.
func (s *Server) handleMatchAI(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req matchAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	gateway := s.newGateway(token)
	exclude := models.NewExclusionSet(req.Exclude...)

	result, err := s.match.NextAI(c.Request.Context(), gateway, exclude, req.Limit, req.Model)
	if err != nil {
		log := requestLog(c, s.log)
		log.Warn().Str("code", errors.GetCode(err)).Str("model", req.Model).Msg("ai match failed")
		writeMatchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// writeMatchError maps a typed failure onto the wire contract. Each failure
// class keeps its own shape so clients can react without string matching.
func writeMatchError(c *gin.Context, err error) {
	switch errors.GetCode(err) {
	case errors.CodeUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.CodeNoCandidates:
		c.JSON(http.StatusNotFound, gin.H{"error": "No candidates available"})
	case errors.CodeConfigInvalid:
		c.JSON(http.StatusInternalServerError, gin.H{"error": errMessage(err)})
	case errors.CodeLLMParseError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM output parse failed", "raw": errors.GetDetail(err)})
	case errors.CodeChoiceNotInPool:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chosen user not in candidate list", "detail": errors.GetDetail(err)})
	case errors.CodeUpstreamError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "LLM request failed", "detail": errors.GetDetail(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recommendation failed"})
	}
}

func errMessage(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
