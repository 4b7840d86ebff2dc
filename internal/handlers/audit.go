package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListActivityLogs отдаёт последние 200 записей журнала (только admin, см. роутер)
func (h *Handler) ListActivityLogs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 200)
	if err != nil {
		h.fail(c, "ListActivityLogs", err)
		return
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	logs, err := h.activity.ListActivityLogs(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "ListActivityLogs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
