package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"simutu-ng/internal/middleware"
	"simutu-ng/internal/models"
)

type loginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c)
		return
	}

	user, err := h.users.UserByUsername(c.Request.Context(), strings.TrimSpace(form.Username))
	if err != nil {
		h.fail(c, "Login", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный логин или пароль"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный логин или пароль"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserID, user.ID.String())
	if err := sess.Save(); err != nil {
		h.fail(c, "Login", err)
		return
	}

	h.activity.Log(c.Request.Context(), models.ActorFromUser(*user), "session", user.ID.String(), "login", "")
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Logout(c *gin.Context) {
	if a, ok := middleware.ActorFrom(c); ok {
		h.activity.Log(c.Request.Context(), a, "session", a.UserID.String(), "logout", "")
	}

	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":     a.UserID,
		"name":       a.Name,
		"role":       a.Role,
		"unitId":     a.UnitID,
		"employeeId": a.EmployeeID,
		"siteId":     a.SiteID,
	})
}
