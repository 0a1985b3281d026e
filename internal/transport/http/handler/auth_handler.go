package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
	"tasktracker/internal/transport/http/ez"
	mdw "tasktracker/internal/transport/http/middleware"
)

// AuthHandler 注册/登录和当前用户资料
type AuthHandler struct {
	users *service.UserService
}

func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerIn struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,min=4,max=128"`
	Email    string `json:"email"    binding:"omitempty,email"`
}

type loginIn struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginOut struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type profileIn struct {
	Email string `json:"email" binding:"omitempty,email"`
}

type passwordIn struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword"     binding:"required,min=4,max=128"`
}

func (h *AuthHandler) MountAPI(public, authed ez.EZ) {
	ez.RegisterAction(public, ez.Action[registerIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *registerIn) (*domain.User, error) {
			return h.users.Register(c.Request.Context(), in.Username, in.Password, in.Email)
		},
	})

	ez.RegisterAction(public, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			tok, u, err := h.users.Login(c.Request.Context(), in.Username, in.Password)
			if err != nil {
				return loginOut{}, err
			}
			return loginOut{Token: tok, User: u}, nil
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.users.Me(c.Request.Context(), c.GetString(mdw.KeyUsername))
		},
	})

	ez.RegisterAction(authed, ez.Action[profileIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/me",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *profileIn) (*domain.User, error) {
			return h.users.UpdateProfile(c.Request.Context(), c.GetString(mdw.KeyUsername), in.Email)
		},
	})

	ez.RegisterAction(authed, ez.Action[passwordIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/me/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *passwordIn) (gin.H, error) {
			err := h.users.ChangePassword(c.Request.Context(), c.GetString(mdw.KeyUsername), in.CurrentPassword, in.NewPassword)
			if err != nil {
				return nil, err
			}
			return gin.H{"changed": true}, nil
		},
	})
}
