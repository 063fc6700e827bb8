// Country lookup handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatspace-dev/go-chatspace-backend/internal/domain"
)

// ListCountriesResponse wraps the dial-code picker data.
type ListCountriesResponse struct {
	Countries []domain.Country `json:"countries"`
}

// ListCountries returns the country dial-code list. The source degrades to
// its built-in fallback set, so this endpoint never fails.
func (h *Handlers) ListCountries(c *gin.Context) {
	ok(c, http.StatusOK, ListCountriesResponse{
		Countries: h.countries.Load(c.Request.Context()),
	})
}
