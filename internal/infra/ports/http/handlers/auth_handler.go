package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Luminawater/juketogether/internal/application/config"
	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/infra/appctx"
	"github.com/Luminawater/juketogether/internal/infra/ports/http/dto"
	"github.com/Luminawater/juketogether/internal/infra/ports/http/middleware"
	"github.com/Luminawater/juketogether/internal/usecase"
)

const cookieTTL = 72 * time.Hour

type AuthHandler struct {
	cfg *config.Config

	userUsecase usecase.UserUsecase
}

func NewAuthHandler(cfg *config.Config, userUsecase usecase.UserUsecase) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		userUsecase: userUsecase,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	user, err := h.userUsecase.CreateUser(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, usecase.ErrInvalidUsername), errors.Is(err, usecase.ErrWeakPassword):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, errs.ErrAlreadyExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "username is taken"})
	case err != nil:
		slog.Error("create user failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create user"})
	}

	return c.JSON(http.StatusCreated, dto.NewMeResponse(user))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	user, err := h.userUsecase.ValidateCredentials(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, usecase.ErrInvalidCredentials) {
		slog.Warn("invalid credentials", slog.String(constant.UserName, req.Username))
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}
	if err != nil {
		slog.Error("validate credentials failed", slog.String(constant.UserName, req.Username), slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not sign in"})
	}

	token, err := h.userUsecase.GenerateJWT(user)
	if err != nil {
		slog.Error("generate JWT failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not create token"})
	}

	c.SetCookie(h.cookie(token, time.Now().Add(cookieTTL)))

	return c.JSON(http.StatusOK, dto.LoginResponse{Token: token, User: dto.NewMeResponse(user)})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookie("", time.Unix(0, 0)))

	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if h.cfg.Debug {
		sameSite = http.SameSiteLaxMode
	}

	return &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Expires:  expires,
		Domain:   middleware.BuildCookieDomain(h.cfg.Domain),
		Path:     "/",
		Secure:   !h.cfg.Debug,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

func (h *AuthHandler) GetMe(c echo.Context) error {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid user ID in context"})
	}

	user, err := h.userUsecase.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, dto.NewMeResponse(user))
}

func (h *AuthHandler) GetOnlineUsers(c echo.Context) error {
	onlineUsers, err := h.userUsecase.GetOnlineUsers(c.Request().Context())
	if err != nil {
		slog.Error("get online users failed", slog.Any(constant.Error, err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not get online users"})
	}

	return c.JSON(http.StatusOK, onlineUsers)
}
