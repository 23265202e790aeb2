// Package http holds the contract between the router and the modules that mount
// routes on it.
package http

import (
	"revive_backend/platform/config"
	"revive_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is implemented by every module that serves HTTP.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is handed to each module once at startup.
//
// V1 is unauthenticated and only the provider webhook lives there. Protected sits
// under the same /api/v1 prefix behind bearer-token auth and carries the dashboard API.
type RouterContext struct {
	Engine         *gin.Engine
	V1             *gin.RouterGroup
	Protected      *gin.RouterGroup
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
	// CallRateLimiter throttles outbound dialling so a stuck client cannot burn provider credit.
	CallRateLimiter *httpkit.IPRateLimiter
}
