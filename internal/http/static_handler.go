package http

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StaticHandler sirve las paginas HTML del frontend desde un directorio.
type StaticHandler struct {
	logger *zap.Logger
	dir    string
}

func NewStaticHandler(logger *zap.Logger, dir string) *StaticHandler {
	return &StaticHandler{logger: logger, dir: dir}
}

func (h *StaticHandler) Dir() string {
	return h.dir
}

// Index maneja GET /.
func (h *StaticHandler) Index(c *gin.Context) {
	h.page(c, "index.html", "Frontend")
}

// Admin maneja GET /admin.
func (h *StaticHandler) Admin(c *gin.Context) {
	h.page(c, "admin.html", "Admin page")
}

// page sirve name; si no existe responde 404 con una pagina minima.
func (h *StaticHandler) page(c *gin.Context, name, label string) {
	path := filepath.Join(h.dir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		h.logger.Warn("static page not found", zap.String("path", path))
		body := fmt.Sprintf("<h1>Error: %s not found. Please ensure %s exists.</h1>", label, filepath.ToSlash(path))
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(body))
		return
	}
	c.File(path)
}
