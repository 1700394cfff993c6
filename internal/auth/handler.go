package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/models"
	"github.com/chaf-events/backend/pkg/response"
	"github.com/chaf-events/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateOperatorRequest is the body for POST /admin/operators (admin only).
type CreateOperatorRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"` // optional, defaults to operator
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, User: user.ToPublic()}})
}

// CreateOperator handles POST /admin/operators (admin only). Check-in staff
// get their own accounts so checked_in_by names a real principal.
func (h *Handler) CreateOperator(c *gin.Context) {
	var req CreateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleOperator
	if req.Role == string(models.RoleAdmin) {
		role = models.RoleAdmin
	} else if req.Role != "" && req.Role != string(models.RoleOperator) {
		response.BadRequest(c, "invalid role")
		return
	}

	if _, err := h.repo.GetByUsername(c.Request.Context(), req.Username); err == nil {
		response.BadRequest(c, "username already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Username, hash, req.FullName, role)
	if err != nil {
		h.logger.Error("create operator failed", zap.Error(err), zap.String("username", req.Username))
		response.Internal(c, "failed to create operator")
		return
	}

	response.Created(c, user.ToPublic())
}

// List handles GET /admin/operators (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list operators")
		return
	}
	response.OK(c, list)
}
