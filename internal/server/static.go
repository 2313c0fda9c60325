package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountFrontend answers unknown routes. API paths always get a JSON 404;
// other paths are served from the frontend build when one is configured,
// falling back to index.html for client-side routing.
func (s *Server) mountFrontend() {
	indexPath := ""
	if s.opts.StaticDir != "" {
		if info, err := os.Stat(s.opts.StaticDir); err != nil || !info.IsDir() {
			s.logger.Warn("static directory missing", "path", s.opts.StaticDir, "error", err)
		} else {
			indexPath = filepath.Join(s.opts.StaticDir, "index.html")
		}
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if indexPath == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}

		path := filepath.Join(s.opts.StaticDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		c.File(indexPath)
	})
}
