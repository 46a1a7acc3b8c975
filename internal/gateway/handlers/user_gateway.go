package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockroom-system/internal/database/models"
	"stockroom-system/internal/gateway/middleware"
	user "stockroom-system/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *user.UserHandler
}

func NewUserHTTPHandler(userHandler *user.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{
		users: userHandler,
	}
}

type userView struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Picture     string `json:"picture"`
	IsAdmin     bool   `json:"is_admin"`
	IsSuperUser bool   `json:"is_superuser"`
}

func viewOf(u models.User) userView {
	return userView{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Picture:     u.Picture,
		IsAdmin:     u.IsAdmin,
		IsSuperUser: u.IsSuperUser,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *UserHTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	account, token, exp, err := s.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, gin.H{
		"token":      token,
		"expires_at": exp.Format(time.RFC3339),
		"user":       viewOf(*account),
	})
}

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

func (s *UserHTTPHandler) Register(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	account, err := s.users.Register(c.Request.Context(), actor, req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, viewOf(*account))
}

func (s *UserHTTPHandler) ListUsers(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	accounts, err := s.users.ListUsers(c.Request.Context(), actor)
	if err != nil {
		failFromError(c, err)
		return
	}

	views := make([]userView, len(accounts))
	for i, account := range accounts {
		views[i] = viewOf(account)
	}
	success(c, views)
}

func (s *UserHTTPHandler) GetUser(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	account, err := s.users.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, viewOf(*account))
}

type updateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Picture   string `json:"picture"`
	Password  string `json:"password" binding:"required"`
}

func (s *UserHTTPHandler) UpdateProfile(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	account, err := s.users.UpdateProfile(c.Request.Context(), actor, req.FirstName, req.LastName, req.Email, req.Picture, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, viewOf(*account))
}

type updatePasswordRequest struct {
	PrevPassword string `json:"prev_password" binding:"required"`
	NewPassword  string `json:"new_password" binding:"required,min=8"`
}

func (s *UserHTTPHandler) UpdatePassword(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.users.UpdatePassword(c.Request.Context(), actor, id, req.PrevPassword, req.NewPassword); err != nil {
		failFromError(c, err)
		return
	}

	success(c, gin.H{"updated": true})
}

func (s *UserHTTPHandler) DeleteUser(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := s.users.DeleteAccount(c.Request.Context(), actor, id); err != nil {
		failFromError(c, err)
		return
	}

	success(c, gin.H{"deleted": true})
}

func (s *UserHTTPHandler) ToggleAdmin(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	account, err := s.users.ToggleAdmin(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, viewOf(*account))
}

func (s *UserHTTPHandler) ToggleSuperuser(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	account, err := s.users.ToggleSuperuser(c.Request.Context(), actor, id)
	if err != nil {
		failFromError(c, err)
		return
	}

	success(c, viewOf(*account))
}
