package handlers

import (
	"net/http"

	"comentum/internal/db"
	"comentum/internal/models"
	"comentum/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*Deps
}

func NewAuthHandler(deps *Deps) *AuthHandler {
	return &AuthHandler{Deps: deps}
}

// Register handles POST /register/.
func (h *AuthHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := utils.NormalizeEmail(c.PostForm("email"))
	password := c.PostForm("password")

	if username == "" || password == "" {
		respond(c, http.StatusBadRequest, nil, "username and password are required")
		return
	}
	if !utils.ValidEmail(email) {
		respond(c, http.StatusBadRequest, nil, "a valid email is required")
		return
	}

	var count int64
	db.DB.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&count)
	if count > 0 {
		respond(c, http.StatusBadRequest, nil, "username or email already taken")
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		respond(c, http.StatusInternalServerError, nil, "registration failed")
		return
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		respond(c, http.StatusInternalServerError, nil, "registration failed")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	respond(c, http.StatusOK, gin.H{"id": user.ID, "username": user.Username}, "welcome")
}

// Login handles POST /login/.
func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	var user models.User
	if err := db.DB.Where("username = ? OR email = ?", username, utils.NormalizeEmail(username)).First(&user).Error; err != nil {
		respond(c, http.StatusBadRequest, nil, "wrong username or password")
		return
	}
	if !utils.CheckPassword(user.Password, password) {
		respond(c, http.StatusBadRequest, nil, "wrong username or password")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	respond(c, http.StatusOK, gin.H{"id": user.ID, "username": user.Username}, "welcome back")
}

// Logout handles POST /logout/.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	respond(c, http.StatusOK, nil, "logged out")
}
