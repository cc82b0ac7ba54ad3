package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/service"
)

type userService interface {
	Register(ctx context.Context, email, password string) (*model.Account, error)
	RegisterAdmin(ctx context.Context, email, password string) (*model.Account, error)
	List(ctx context.Context, pageIndex, pageSize int) ([]model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
}

type UserHandler struct {
	svc userService
}

func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register godoc
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email and password"
// @Success 201 {object} model.APIResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/users [post]
func (h *UserHandler) Register(c *gin.Context) {
	h.register(c, h.svc.Register, "User registered successfully.")
}

// RegisterAdmin godoc
// @Summary Register an admin user
// @Description Only available when ALLOW_ADMIN_SIGNUP is true.
// @Tags users
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Email and password"
// @Success 201 {object} model.APIResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/users/create-admin [post]
func (h *UserHandler) RegisterAdmin(c *gin.Context) {
	h.register(c, h.svc.RegisterAdmin, "Admin user registered successfully.")
}

func (h *UserHandler) register(c *gin.Context, create func(context.Context, string, string) (*model.Account, error), message string) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	account, err := create(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeUserError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.APIResponse{
		Status:  http.StatusCreated,
		Message: message,
		Data:    model.NewAccountView(account),
	})
}

// List godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page_index query int false "Zero-based page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} model.APIResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		writeError(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	accounts, err := h.svc.List(c.Request.Context(), page.PageIndex, page.PageSize)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(c, http.StatusNotFound, "No users found.")
			return
		}
		writeUserError(c, err)
		return
	}

	views := make([]model.AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, model.NewAccountView(&accounts[i]))
	}
	total := len(views)
	c.JSON(http.StatusOK, model.APIResponse{
		Status:       http.StatusOK,
		Message:      "User fetched successfully.",
		Data:         views,
		TotalRecords: &total,
	})
}

// Get godoc
// @Summary Get user details
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User id (userid-<uuid>)"
// @Success 200 {object} model.APIResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/users/{userId} [get]
func (h *UserHandler) Get(c *gin.Context) {
	account, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(c, http.StatusBadRequest, "Please enter valid user id")
		case errors.Is(err, service.ErrNotFound):
			writeError(c, http.StatusNotFound, "No user found.")
		default:
			writeUserError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Status:  http.StatusOK,
		Message: "User details fetched successfully.",
		Data:    model.NewAccountView(account),
	})
}

func writeUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConflict):
		writeError(c, http.StatusBadRequest, "User already exists.")
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, msgForbidden)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, msgInvalidRequest)
	default:
		writeError(c, http.StatusInternalServerError, msgInternalError)
	}
}
