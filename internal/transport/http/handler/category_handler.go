package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
	"tasktracker/internal/transport/http/ez"
)

// CategoryHandler 分类是全局共享的，只要求登录
type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryIn struct {
	Name        string `json:"name"        binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

func (h *CategoryHandler) MountAPI(_, authed ez.EZ) {
	ez.RegisterAction(authed, ez.Action[struct{}, []domain.Category]{
		Method: http.MethodGet,
		Path:   "/categories",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Category, error) {
			cs, err := h.categories.List(c.Request.Context())
			if cs == nil && err == nil {
				cs = []domain.Category{}
			}
			return cs, err
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *domain.Category]{
		Method: http.MethodGet,
		Path:   "/categories/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Category, error) {
			return h.categories.Get(c.Request.Context(), c.Param("id"))
		},
	})

	ez.RegisterAction(authed, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPost,
		Path:   "/categories",
		Binder: ez.BindJSON,
		Auth:   true,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *categoryIn) (*domain.Category, error) {
			return h.categories.Create(c.Request.Context(), in.Name, in.Description)
		},
	})

	ez.RegisterAction(authed, ez.Action[categoryIn, *domain.Category]{
		Method: http.MethodPut,
		Path:   "/categories/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *categoryIn) (*domain.Category, error) {
			return h.categories.Update(c.Request.Context(), c.Param("id"), in.Name, in.Description)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/categories/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := h.categories.Delete(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
