package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkgate/internal/domain"
	"linkgate/internal/service"
	"linkgate/pkg/logger"
)

// LinkHandler handles the owner API
type LinkHandler struct {
	service service.LinkService
	logger  *logger.Logger
}

// NewLinkHandler creates a new link handler with dependencies
func NewLinkHandler(service service.LinkService, logger *logger.Logger) *LinkHandler {
	return &LinkHandler{
		service: service,
		logger:  logger,
	}
}

// CreateLink handles POST /api/v1/links
// Creates a new short link with an optional restriction policy
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req domain.CreateLinkRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("Invalid request body", "error", err)
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}

	response, err := h.service.CreateLink(c.Request.Context(), OwnerID(c), &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	respondData(c, http.StatusCreated, response)
}

// GetStats handles GET /api/v1/links/:shortCode/stats
// Returns counters for one of the caller's links
func (h *LinkHandler) GetStats(c *gin.Context) {
	shortCode := c.Param("shortCode")

	stats, err := h.service.GetStats(c.Request.Context(), OwnerID(c), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	respondData(c, http.StatusOK, stats)
}

// handleError processes domain errors and returns appropriate HTTP responses
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	var appErr *domain.AppError

	switch {
	case errors.Is(err, domain.ErrShortCodeTaken):
		respondError(c, http.StatusConflict, CodeShortCodeTaken, "This short code is already in use")

	case errors.Is(err, domain.ErrLinkNotFound):
		respondError(c, http.StatusNotFound, CodeURLNotFound, "The requested link was not found")

	case errors.As(err, &appErr):
		// Log internal errors but don't expose details to users
		if appErr.Internal {
			h.logger.Errorw("Internal server error", "error", appErr.Err)
			respondError(c, appErr.StatusCode, CodeInternalError, "An internal error occurred")
			return
		}
		respondError(c, appErr.StatusCode, CodeValidationFailed, appErr.Message)

	default:
		h.logger.Errorw("Unexpected error", "error", err)
		respondError(c, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred")
	}
}
