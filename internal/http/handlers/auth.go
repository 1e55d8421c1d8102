package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/userhub/internal/service"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	users Authenticator
	log   *slog.Logger
}

func NewAuthHandler(users Authenticator, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	token, err := h.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Invalid credentials", nil)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "login_failed", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": token})
}
