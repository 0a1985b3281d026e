// Package ez 把 handler 写成 (in) -> (out, error)，统一绑定、鉴权和错误映射
package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/service"
	mdw "tasktracker/internal/transport/http/middleware"
	resp "tasktracker/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr handler 里直接指定业务码
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/tasks/:id"
	Binder  Binder
	Auth    bool // 要求登录（检查 username）
	Status  int  // 成功时的 HTTP 状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		// 1) 鉴权
		if a.Auth && c.GetString(mdw.KeyUsername) == "" {
			resp.JSON(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			resp.JSON(c, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		// 3) 执行 + 统一错误映射
		out, err := a.Handler(c, &in)
		if err != nil {
			resp.JSON(c, e.mapError(c, err))
			return
		}
		r := resp.OK(out)
		if a.Status != 0 && a.Status != http.StatusOK {
			c.JSON(a.Status, r)
			return
		}
		resp.JSON(c, r)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// mapError 业务错误 → 响应；未知错误只进日志，对外统一 "internal error"
func (e EZ) mapError(c *gin.Context, err error) resp.Resp {
	var ae *AErr
	switch {
	case errors.As(err, &ae):
		return resp.Error(ae.Code, ae.Error())
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return resp.Error(resp.CodeBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return resp.Error(resp.CodeUnauthorized, err.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		// 不区分"不存在"和"不是你的"
		return resp.Error(resp.CodeNotFound, "task not found")
	case errors.Is(err, service.ErrCategoryNotFound):
		return resp.Error(resp.CodeNotFound, "category not found")
	case errors.Is(err, service.ErrUserNotFound):
		return resp.Error(resp.CodeNotFound, "user not found")
	case errors.Is(err, service.ErrNotFound):
		return resp.Error(resp.CodeNotFound, "not found")
	}
	e.log.Error("request failed",
		zap.String("rid", c.GetString(mdw.KeyRequestID)),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	return resp.Error(resp.CodeServerError, "internal error")
}
