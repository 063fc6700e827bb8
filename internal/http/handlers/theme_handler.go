// Display-mode preference handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
)

// ThemeResponse carries the current display mode.
type ThemeResponse struct {
	Theme domain.ThemeMode `json:"theme"`
}

// PutThemeRequest sets the display mode. Only "light" and "dark" are accepted.
type PutThemeRequest struct {
	Theme domain.ThemeMode `json:"theme" binding:"required"`
}

// GetTheme returns the active display mode.
func (h *Handlers) GetTheme(c *gin.Context) {
	ok(c, http.StatusOK, ThemeResponse{Theme: h.app.Theme()})
}

// PutTheme stores a new display mode and echoes the result.
func (h *Handlers) PutTheme(c *gin.Context) {
	var req PutThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "theme is required")
		return
	}
	if !req.Theme.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "theme must be light or dark")
		return
	}
	h.app.SetTheme(c.Request.Context(), req.Theme)
	ok(c, http.StatusOK, ThemeResponse{Theme: h.app.Theme()})
}

// ToggleTheme flips between light and dark.
func (h *Handlers) ToggleTheme(c *gin.Context) {
	mode := h.app.ToggleTheme(c.Request.Context())
	ok(c, http.StatusOK, ThemeResponse{Theme: mode})
}
