package handlers

import (
	"net/http"

	"github.com/designwheel/engine/internal/api/middleware"
	"github.com/designwheel/engine/internal/api/types"
	"github.com/designwheel/engine/internal/services"
)

type AuthHandler struct {
	auth      services.AuthService
	directory services.DirectoryService
}

func NewAuthHandler(auth services.AuthService, directory services.DirectoryService) *AuthHandler {
	return &AuthHandler{auth: auth, directory: directory}
}

func (h *AuthHandler) InstructorLogin(w http.ResponseWriter, r *http.Request) {
	var req types.InstructorLoginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.auth.InstructorLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"role":         services.RoleInstructor,
	})
}

// Logout marks a student offline. Tokens are stateless and stay valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetClaims(r.Context()).StudentID(); id != "" {
		if err := h.directory.SignOut(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}
