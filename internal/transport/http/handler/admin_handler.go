package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/domain"
	"tasktracker/internal/notify"
	"tasktracker/internal/service"
	"tasktracker/internal/transport/http/ez"
)

// AdminHandler 用户列表 + 手动触发通知任务
type AdminHandler struct {
	users    *service.UserService
	notifier *notify.Notifier
}

func NewAdminHandler(users *service.UserService, n *notify.Notifier) *AdminHandler {
	return &AdminHandler{users: users, notifier: n}
}

type userListQ struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

type userListOut struct {
	Total int64         `json:"total"`
	Items []domain.User `json:"items"`
}

func (h *AdminHandler) MountAdmin(admin ez.EZ) {
	ez.RegisterAction(admin, ez.Action[userListQ, userListOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *userListQ) (userListOut, error) {
			us, total, err := h.users.List(c.Request.Context(), in.Offset, in.Limit)
			if err != nil {
				return userListOut{}, err
			}
			if us == nil {
				us = []domain.User{}
			}
			return userListOut{Total: total, Items: us}, nil
		},
	})

	for _, job := range []string{notify.JobDueSoon, notify.JobOverdue, notify.JobWeekly} {
		ez.RegisterAction(admin, ez.Action[struct{}, notify.Report]{
			Method: http.MethodPost,
			Path:   "/notifications/" + job,
			Binder: ez.BindNone,
			Auth:   true,
			Handler: func(c *gin.Context, _ *struct{}) (notify.Report, error) {
				return h.notifier.Run(c.Request.Context(), job, h.notifier.Now())
			},
		})
	}
}
