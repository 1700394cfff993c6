package categories

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/pkg/response"
)

// CreateRequest is the body for POST /admin/categories.
type CreateRequest struct {
	Name            string `json:"name" binding:"required"`
	Fee             int64  `json:"fee" binding:"required,min=0"`
	MaxParticipants int    `json:"max_participants" binding:"required,min=1"`
	Description     string `json:"description"`
}

// Handler handles category HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a categories handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /categories (public).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list categories failed", zap.Error(err))
		response.Internal(c, "failed to list categories")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/categories (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	cat := &models.Category{
		Name:            req.Name,
		Fee:             req.Fee,
		MaxParticipants: req.MaxParticipants,
		Description:     req.Description,
	}
	if err := h.repo.Create(c.Request.Context(), cat); err != nil {
		h.logger.Error("create category failed", zap.Error(err), zap.String("name", req.Name))
		response.Internal(c, "failed to create category")
		return
	}
	response.Created(c, cat)
}
