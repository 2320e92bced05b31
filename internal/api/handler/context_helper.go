package handler

import (
	"github.com/gin-gonic/gin"

	"attendease/backend/internal/service"
	"attendease/backend/pkg/jwt"
	"attendease/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetPrincipal 组装调用主体，供 Service 层权限门控使用。
func MustGetPrincipal(c *gin.Context) (service.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Principal{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Principal{}, false
	}
	return service.Principal{ID: userID, Role: role}, true
}

// MustGetClaims 从 Gin 上下文中提取完整 JWT claims（登出吊销用）。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return claims, true
}
