// Package service 按归属校验的任务操作，以及周边的用户、分类流程
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 输入缺失或非法，返回客户端错误
	ErrValidation = errors.New("validation error")

	// ErrNotFound 任务/分类/用户 id 不存在
	ErrNotFound = errors.New("not found")

	// ErrConflict 用户名或邮箱重复，返回客户端错误
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized 登录凭证错误
	ErrUnauthorized = errors.New("invalid credentials")

	ErrUserNotFound     = fmt.Errorf("%w: user", ErrNotFound)
	ErrTaskNotFound     = fmt.Errorf("%w: task", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("%w: category", ErrNotFound)

	// ErrForbidden 访问别人的任务；包装 ErrTaskNotFound，对外与不存在无法区分
	ErrForbidden = fmt.Errorf("%w (not owned)", ErrTaskNotFound)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
