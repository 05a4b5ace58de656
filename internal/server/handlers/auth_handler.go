package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cableshop/internal/domain/models"
	"github.com/mamadbah2/cableshop/internal/service/auth"
)

// AuthHandler serves login and account management for the desktop session.
type AuthHandler struct {
	svc    *auth.Service
	logger *zap.Logger
}

// NewAuthHandler constructs the auth HTTP adapter.
func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: nopIfNil(logger)}
}

// userView never exposes the password hash.
type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserView(u models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: u.Role}
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	user, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toUserView(*user))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.svc.Logout()
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.CurrentUser()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toUserView(*user))
}

func (h *AuthHandler) ListUsers(c *gin.Context) {
	users := h.svc.Users()
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	c.JSON(http.StatusOK, out)
}

// CreateUser is limited to a logged-in admin once any account exists.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}
	user, err := h.svc.CreateUserAs(c.Request.Context(), req.Username, req.Password, req.Role)
	respond(c, h.logger, http.StatusCreated, toUserView(user), err)
}
