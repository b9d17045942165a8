package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborline/hscode/internal/common"
	"github.com/harborline/hscode/internal/model"
)

// errorResponse is the uniform error body for every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

type classifyRequest struct {
	Description    string            `json:"description"`
	ConversationID string            `json:"conversationId"`
	Answers        map[string]string `json:"answers"`
}

type answersRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

type feedbackRequest struct {
	ClassificationID string  `json:"classificationId" binding:"required"`
	Description      string  `json:"description"`
	SuggestedCode    string  `json:"suggestedCode" binding:"required"`
	Confidence       float64 `json:"confidence"`
	Rating           int     `json:"rating" binding:"required"`
	CorrectedCode    string  `json:"correctedCode"`
	Note             string  `json:"note"`
}

func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	// Supplying a conversation id resumes that conversation with the given
	// answers instead of opening a new one.
	if req.ConversationID != "" {
		resp, err := s.engine.SubmitAnswers(c.Request.Context(), req.ConversationID, req.Answers)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	if req.Description == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "description is required"})
		return
	}

	resp, err := s.engine.Classify(c.Request.Context(), req.Description)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetConversation(c *gin.Context) {
	session, err := s.engine.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversationId": session.ID,
		"description":    session.Description,
		"status":         session.Status,
		"round":          session.Round,
		"answers":        session.Answers,
	})
}

func (s *Server) handleSubmitAnswers(c *gin.Context) {
	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "answers map is required"})
		return
	}

	resp, err := s.engine.SubmitAnswers(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSkip(c *gin.Context) {
	resp, err := s.engine.Skip(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAbandon(c *gin.Context) {
	if err := s.engine.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSaveFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "classificationId, suggestedCode and rating are required"})
		return
	}

	record := &model.FeedbackRecord{
		ClassificationID: req.ClassificationID,
		Description:      req.Description,
		SuggestedCode:    req.SuggestedCode,
		Confidence:       req.Confidence,
		Rating:           req.Rating,
		CorrectedCode:    req.CorrectedCode,
		Note:             req.Note,
	}
	if err := record.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.feedback.SaveFeedback(c.Request.Context(), record); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": record.ID})
}

func (s *Server) handleFeedbackStats(c *gin.Context) {
	stats, err := s.feedback.GetFeedbackStats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetCatalogEntry(c *gin.Context) {
	entry, err := s.catalog.GetEntry(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	// Embeddings are an implementation detail; strip them from the response.
	entry.Embedding = nil
	c.JSON(http.StatusOK, entry)
}

// writeError maps engine and storage errors onto HTTP status codes. Internal
// errors are logged but never echoed to the client.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidAnswer):
		c.JSON(http.StatusBadRequest, errorResponse{Error: userMessage(err)})
	case errors.Is(err, common.ErrSessionNotFound), errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: userMessage(err)})
	case errors.Is(err, common.ErrSessionTerminated):
		c.JSON(http.StatusConflict, errorResponse{Error: userMessage(err)})
	case errors.Is(err, common.ErrNoMatch):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: userMessage(err)})
	case errors.Is(err, common.ErrUpstreamTimeout):
		c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "upstream model call timed out"})
	default:
		s.logger.Error("Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// userMessage prefers the user-facing message when one was attached.
func userMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return err.Error()
}
