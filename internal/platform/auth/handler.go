package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ResumeSection-backend/internal/platform/apierr"
)

type Handler struct{ svc *Service }

// RegisterRoutes は認証とアカウント管理のルートを登録する。
func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &Handler{svc: svc}
	secret := svc.Secret()

	r.POST("/login", h.Login)
	r.POST("/register", OptionalAuth(secret), h.Register)

	authed := r.Group("", RequireAuth(secret))
	authed.GET("/me", h.Me)
	authed.GET("/users/:id", h.GetUser)

	admin := authed.Group("", RequireRole(RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PUT("/users/:id", h.UpdateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "username and password are required"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Register(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	var caller *Identity
	if id, ok := IdentityFrom(c); ok {
		caller = &id
	}
	res, err := h.svc.Register(c.Request.Context(), caller, req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/users/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Me(c *gin.Context) {
	id, _ := IdentityFrom(c)
	res, err := h.svc.Get(c.Request.Context(), id, id.UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListUsers(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) GetUser(c *gin.Context) {
	uid, ok := userIDParam(c)
	if !ok {
		return
	}
	id, _ := IdentityFrom(c)
	res, err := h.svc.Get(c.Request.Context(), id, uid)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Header("Location", "/users/"+strconv.FormatInt(res.ID, 10))
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	uid, ok := userIDParam(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.Update(c.Request.Context(), uid, req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	uid, ok := userIDParam(c)
	if !ok {
		return
	}
	id, _ := IdentityFrom(c)
	if err := h.svc.Delete(c.Request.Context(), id, uid); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func userIDParam(c *gin.Context) (int64, bool) {
	uid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || uid <= 0 {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeInvalidArgument, "id must be a positive number"))
		return 0, false
	}
	return uid, true
}
