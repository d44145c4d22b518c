package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragapi/internal/auth"
	"ragapi/internal/transport/http/response"
)

type KeyHandler struct {
	keys *auth.KeyManager
}

type CreateKeyRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Role        string `json:"role" binding:"required"`
	ExpiresDays int    `json:"expires_days"`
}

type RevokeKeyRequest struct {
	Key string `json:"key" binding:"required"`
}

func NewKeyHandler(keys *auth.KeyManager) *KeyHandler {
	return &KeyHandler{keys: keys}
}

// Create issues a new key. The plaintext appears in this response and
// nowhere else.
func (h *KeyHandler) Create(c *gin.Context) {
	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	plaintext, err := h.keys.GenerateKey(req.UserID, req.Role, req.ExpiresDays)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRole) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "generate key failed")
		}
		return
	}

	response.OK(c, gin.H{
		"api_key": plaintext,
		"user_id": req.UserID,
		"role":    req.Role,
	})
}

func (h *KeyHandler) List(c *gin.Context) {
	listings := h.keys.ListKeys(c.Query("user_id"))
	response.OK(c, gin.H{
		"keys":  listings,
		"count": len(listings),
	})
}

func (h *KeyHandler) Revoke(c *gin.Context) {
	var req RevokeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	response.OK(c, gin.H{
		"revoked": h.keys.RevokeKey(req.Key),
	})
}
