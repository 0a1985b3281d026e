package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/notify"
	"tasktracker/internal/scheduler"
	"tasktracker/internal/service"
	"tasktracker/internal/transport/http/ez"
	mdw "tasktracker/internal/transport/http/middleware"
)

type NotificationHandler struct {
	users    *service.UserService
	notifier *notify.Notifier
	sched    *scheduler.Scheduler // nil: 未启用调度
}

func NewNotificationHandler(users *service.UserService, n *notify.Notifier, s *scheduler.Scheduler) *NotificationHandler {
	return &NotificationHandler{users: users, notifier: n, sched: s}
}

type testOut struct {
	Outcome     notify.Outcome `json:"outcome"`
	MailEnabled bool           `json:"mailEnabled"`
}

type statusOut struct {
	MailEnabled bool                `json:"mailEnabled"`
	Jobs        []scheduler.JobInfo `json:"jobs"`
}

func (h *NotificationHandler) MountAPI(_, authed ez.EZ) {
	ez.RegisterAction(authed, ez.Action[struct{}, testOut]{
		Method: http.MethodPost,
		Path:   "/notifications/test",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (testOut, error) {
			u, err := h.users.Me(c.Request.Context(), c.GetString(mdw.KeyUsername))
			if err != nil {
				return testOut{}, err
			}
			return testOut{
				Outcome:     h.notifier.SendTest(c.Request.Context(), *u),
				MailEnabled: h.notifier.MailEnabled(),
			}, nil
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, statusOut]{
		Method: http.MethodGet,
		Path:   "/notifications/status",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (statusOut, error) {
			return h.status(), nil
		},
	})
}

func (h *NotificationHandler) status() statusOut {
	out := statusOut{MailEnabled: h.notifier.MailEnabled(), Jobs: []scheduler.JobInfo{}}
	if h.sched != nil {
		out.Jobs = h.sched.Jobs()
	}
	return out
}
