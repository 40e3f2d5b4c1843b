package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Read-only overview stats
func (a *API) StatsOverview(c *gin.Context) {
	userID := c.GetString("userID")

	overview, err := a.store.StatsOverview(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database error")
		return
	}
	respondOK(c, gin.H{"stats": overview})
}
