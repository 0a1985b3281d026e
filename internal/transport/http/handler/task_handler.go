package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
	"tasktracker/internal/transport/http/ez"
	mdw "tasktracker/internal/transport/http/middleware"
)

// TaskHandler 所有任务接口都按当前登录用户做归属校验
type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type taskIn struct {
	Title       string  `json:"title"       binding:"max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	DueDate     string  `json:"dueDate"`
	CategoryID  string  `json:"categoryId"`
}

func (in taskIn) input() service.TaskInput {
	return service.TaskInput{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		DueDate:     in.DueDate,
		CategoryID:  in.CategoryID,
	}
}

// ?status= 按状态；?from=&to= 按截止日期闭区间；两者可同时使用
type taskListQ struct {
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
}

func (h *TaskHandler) MountAPI(_, authed ez.EZ) {
	ez.RegisterAction(authed, ez.Action[taskListQ, []domain.Task]{
		Method:  http.MethodGet,
		Path:    "/tasks",
		Binder:  ez.BindQuery,
		Auth:    true,
		Handler: h.list,
	})

	ez.RegisterAction(authed, ez.Action[taskIn, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *taskIn) (*domain.Task, error) {
			return h.tasks.Create(c.Request.Context(), c.GetString(mdw.KeyUsername), in.input())
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *domain.Task]{
		Method: http.MethodGet,
		Path:   "/tasks/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Task, error) {
			return h.tasks.Get(c.Request.Context(), c.GetString(mdw.KeyUsername), c.Param("id"))
		},
	})

	ez.RegisterAction(authed, ez.Action[taskIn, *domain.Task]{
		Method: http.MethodPut,
		Path:   "/tasks/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *taskIn) (*domain.Task, error) {
			return h.tasks.Update(c.Request.Context(), c.GetString(mdw.KeyUsername), c.Param("id"), in.input())
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/tasks/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := h.tasks.Delete(c.Request.Context(), c.GetString(mdw.KeyUsername), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}

func (h *TaskHandler) list(c *gin.Context, in *taskListQ) ([]domain.Task, error) {
	ctx := c.Request.Context()
	username := c.GetString(mdw.KeyUsername)
	status := strings.TrimSpace(in.Status)

	if strings.TrimSpace(in.From) == "" && strings.TrimSpace(in.To) == "" {
		if status != "" {
			return h.tasks.ListByOwnerAndStatus(ctx, username, status)
		}
		return h.tasks.ListByOwner(ctx, username)
	}

	from, err := parseOptionalDate(in.From)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate(in.To)
	if err != nil {
		return nil, err
	}
	tasks, err := h.tasks.ListByOwnerAndDueDateRange(ctx, username, from, to)
	if err != nil || status == "" {
		return tasks, err
	}
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, ez.BadRequest(err.Error())
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == st {
			out = append(out, t)
		}
	}
	return out, nil
}

func parseOptionalDate(s string) (domain.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Date{}, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}, ez.BadRequest("invalid date format, use YYYY-MM-DD")
	}
	return d, nil
}
