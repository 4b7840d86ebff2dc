package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/config"
	"simutu-ng/internal/handlers"
	"simutu-ng/internal/middleware"
	"simutu-ng/internal/models"
)

func NewRouter(cfg *config.Config, h *handlers.Handler, users middleware.UserLoader, logger *logrus.Logger) *gin.Engine {
	r := gin.Default()

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: 8 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("simutu_session", store))

	r.Use(middleware.InjectActor(users, logger))

	// AUTH
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())

	api.GET("/auth/me", h.Me)

	// ЗАПИСИ
	api.GET("/entries", h.ListEntries)
	api.POST("/entries", h.CreateEntry)
	api.GET("/entries/:id", h.GetEntry)
	api.PUT("/entries/:id", h.UpdateEntry)
	api.DELETE("/entries/:id", h.DeleteEntry)
	api.PATCH("/entries/:id/status", h.SetEntryStatus)
	api.GET("/entries/:id/logs", h.EntryLogs)

	// верификация: manager/auditor/admin
	api.GET("/verification",
		middleware.RequireRole(models.RoleManager, models.RoleAuditor, models.RoleAdmin),
		h.ListForVerification,
	)

	// ОТЧЁТЫ
	api.GET("/reports/daily", h.DailyReport)
	api.GET("/reports/monthly", h.MonthlyReport)
	api.GET("/reports/range", h.RangeReport)
	api.GET("/reports/yearly", h.YearlyReport)
	api.GET("/reports/yearly-excel", h.YearlyExcel)
	api.GET("/reports/summary", h.SummaryReport)

	// PDCA
	api.GET("/pdca/needs", h.NeedsPDCA)
	api.POST("/pdca", h.CreatePDCA)
	api.GET("/pdca/:id", h.GetPDCA)
	api.PUT("/pdca/:id", h.UpdatePDCA)
	api.DELETE("/pdca/:id", h.DeletePDCA)
	api.GET("/entry-items/:id/pdca", h.ItemPDCA)

	// ЖУРНАЛ ДЕЙСТВИЙ
	api.GET("/activity-logs",
		middleware.RequireRole(models.RoleAdmin),
		h.ListActivityLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
