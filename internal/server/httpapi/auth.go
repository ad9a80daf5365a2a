package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionLoginRequest struct {
	SessionToken string `json:"session_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type signupResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	SessionToken string `json:"session_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Message      string `json:"message"`
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgBadBody)
		return
	}

	u, err := h.users.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, signupResponse{
		UserID:   u.ID.String(),
		Username: u.UserName,
		Message:  "User registered successfully",
	})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, msgInvalidLogin)
		return
	}

	u, pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password, clientInfo(c))
	if err != nil {
		if common.KindOf(err) == common.KindInvalidCredential {
			writeMessage(c, http.StatusUnauthorized, msgInvalidLogin)
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		UserID:       u.ID.String(),
		Username:     u.UserName,
		SessionToken: pair.SessionToken,
		RefreshToken: pair.RefreshToken,
		Message:      "login successfully.",
	})
}

func (h *Handler) sessionLogin(c *gin.Context) {
	var req sessionLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionToken == "" {
		h.writeError(c, common.E(common.KindInvalidSessionToken, "login.session", err))
		return
	}

	ctx := c.Request.Context()
	id, err := h.credentials.Resolve(ctx, req.SessionToken, services.SessionToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	name, err := h.users.UserName(ctx, id.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		UserID:   id.UserID.String(),
		Username: name,
		Message:  "login successfully.",
	})
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		h.writeError(c, common.E(common.KindInvalidRefreshToken, "login.refresh", err))
		return
	}

	ctx := c.Request.Context()
	pair, userID, err := h.sessions.Rotate(ctx, req.RefreshToken, clientInfo(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	name, err := h.users.UserName(ctx, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		UserID:       userID.String(),
		Username:     name,
		SessionToken: pair.SessionToken,
		RefreshToken: pair.RefreshToken,
		Message:      "token refreshed.",
	})
}

func (h *Handler) logout(c *gin.Context) {
	id := identity(c)
	if err := h.sessions.Revoke(c.Request.Context(), id.CredentialID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out."})
}
