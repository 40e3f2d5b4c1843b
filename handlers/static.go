package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterStatic serves the SPA bundle. Unknown non-API paths fall back
// to index.html so client-side routing works on refresh.
func (a *API) RegisterStatic(r *gin.Engine) {
	dir := a.cfg.StaticDir
	if dir == "" {
		return
	}

	r.Static("/assets", filepath.Join(dir, "assets"))
	r.StaticFile("/", filepath.Join(dir, "index.html"))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			respondError(c, http.StatusNotFound, "not found")
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
