package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/service"
)

// AuthController 用户注册与登录控制器
type AuthController struct {
	userService service.UserService
}

// NewAuthController 创建认证控制器
func NewAuthController(userService service.UserService) *AuthController {
	return &AuthController{userService: userService}
}

// Register 注册用户
// POST /api/v1/auth/register
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.CredentialsInput
	if !BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.Register(ctx.Request.Context(), &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Created(ctx, user)
}

// Login 登录并签发令牌
// POST /api/v1/auth/login
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.CredentialsInput
	if !BindJSON(ctx, &req) {
		return
	}

	token, err := c.userService.Login(ctx.Request.Context(), &req)
	if err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, token)
}

// Logout 注销当前令牌
// POST /api/v1/auth/logout
func (c *AuthController) Logout(ctx *gin.Context) {
	token := auth.ExtractToken(ctx)
	if token == "" {
		Error(ctx, http.StatusUnauthorized, "missing token", "")
		return
	}

	if err := c.userService.Logout(ctx.Request.Context(), token); err != nil {
		HandleError(ctx, err)
		return
	}

	Success(ctx, nil)
}
