package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"convo-proxy/internal/service"
)

// AdminHandler expone estadisticas y exportaciones anonimizadas.
type AdminHandler struct {
	logger *zap.Logger
	admin  *service.AdminService
}

func NewAdminHandler(logger *zap.Logger, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{logger: logger, admin: admin}
}

// Stats maneja GET /api/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.admin.Stats()
	if err != nil {
		h.logger.Error("admin stats failed", zap.Error(err))
		writeError(c, "Error computing stats", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Conversations maneja GET /api/admin/conversations.
func (h *AdminHandler) Conversations(c *gin.Context) {
	convs, err := h.admin.AnonymizedConversations()
	if err != nil {
		h.logger.Error("admin conversations failed", zap.Error(err))
		writeError(c, "Error retrieving conversations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations":  convs,
		"total_sessions": len(convs),
	})
}

// DownloadCSV maneja GET /api/admin/download/csv.
func (h *AdminHandler) DownloadCSV(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.admin.ExportCSV(&buf); err != nil {
		h.logger.Error("csv export failed", zap.Error(err))
		writeError(c, "Error exporting conversations", err)
		return
	}
	c.Header("Content-Disposition", attachment("csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// DownloadJSON maneja GET /api/admin/download/json.
func (h *AdminHandler) DownloadJSON(c *gin.Context) {
	doc, err := h.admin.ExportJSON()
	if err != nil {
		h.logger.Error("json export failed", zap.Error(err))
		writeError(c, "Error exporting conversations", err)
		return
	}
	c.Header("Content-Disposition", attachment("json"))
	c.JSON(http.StatusOK, doc)
}

func attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="conversations_%s.%s"`, time.Now().UTC().Format("20060102_150405"), ext)
}
