// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"bazaar/internal/delivery/http/middleware"
	"bazaar/internal/delivery/http/router/handler"
	deliverymiddleware "bazaar/internal/delivery/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	OAuthHandler   *handler.OAuthHandler
	AdminHandler   *handler.AdminHandler
	SecretHandler  *handler.SecretHandler

	RequestIDMiddleware *deliverymiddleware.RequestIDMiddleware
	LoggerMiddleware    *middleware.LoggerMiddleware
	AuthMiddleware      *middleware.AuthMiddleware
	ReauthMiddleware    *middleware.ReauthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	params RouterParams
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{params: params}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.Use(r.params.RequestIDMiddleware.Process)
	e.Use(r.params.LoggerMiddleware.Handle)

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	authenticate := r.params.AuthMiddleware.Authenticate

	// Credential and session lifecycle. The refresh cookie is scoped to
	// this path prefix, so rotation and logout must live here.
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.params.AuthHandler.Register)
		authGroup.POST("/login", r.params.AuthHandler.Login)
		authGroup.POST("/refresh", r.params.AuthHandler.Refresh)
		authGroup.POST("/logout", r.params.AuthHandler.Logout)
		authGroup.POST("/step-up", r.params.AuthHandler.StepUp, authenticate)
		authGroup.POST("/change-password", r.params.AuthHandler.ChangePassword, authenticate)
	}

	// Session management for the logged-in account.
	sessionGroup := e.Group("/sessions")
	sessionGroup.Use(authenticate)
	{
		sessionGroup.GET("", r.params.SessionHandler.ListSessions)
		sessionGroup.DELETE("/others", r.params.SessionHandler.RevokeOtherSessions)
		sessionGroup.DELETE("/:id", r.params.SessionHandler.RevokeSession)
	}

	// External identity flows. Begin and callback must work before any
	// session exists, but a logged-in caller is still recognized so link
	// intents can attach to the right account.
	optionalAuthenticate := r.params.AuthMiddleware.OptionalAuthenticate

	oauthGroup := e.Group("/oauth")
	{
		oauthGroup.GET("/:provider/begin", r.params.OAuthHandler.Begin, optionalAuthenticate)
		oauthGroup.GET("/callback", r.params.OAuthHandler.Callback, optionalAuthenticate)
		oauthGroup.POST("/complete", r.params.OAuthHandler.CompleteSignup)
		oauthGroup.GET("/identities", r.params.OAuthHandler.ListIdentities, authenticate)
		oauthGroup.DELETE("/identities/:provider", r.params.OAuthHandler.Unlink, authenticate)
	}

	// Administrative operations. Mutations additionally require a fresh
	// step-up confirmation; the reauth cookie is scoped to this prefix.
	adminGroup := e.Group("/admin")
	adminGroup.Use(authenticate)
	adminGroup.Use(r.params.AuthMiddleware.RequireAdmin)
	{
		reauth := r.params.ReauthMiddleware.Gate

		adminGroup.POST("/users/:id/suspend", r.params.AdminHandler.SuspendUser, reauth)
		adminGroup.POST("/users/:id/ban", r.params.AdminHandler.BanUser, reauth)
		adminGroup.POST("/users/:id/reinstate", r.params.AdminHandler.ReinstateUser, reauth)
		adminGroup.DELETE("/users/:id", r.params.AdminHandler.DeleteUser, reauth)
		adminGroup.GET("/audit", r.params.AdminHandler.ListAudit)

		superadmin := r.params.AuthMiddleware.RequireSuperadmin

		adminGroup.POST("/users/:id/promote", r.params.AdminHandler.PromoteAdmin, superadmin, reauth)
		adminGroup.POST("/users/:id/demote", r.params.AdminHandler.DemoteAdmin, superadmin, reauth)

		secretGroup := adminGroup.Group("/secrets", superadmin)
		{
			secretGroup.GET("", r.params.SecretHandler.ListSecretNames)
			secretGroup.GET("/:name", r.params.SecretHandler.GetSecret)
			secretGroup.PUT("/:name", r.params.SecretHandler.PutSecret, reauth)
			secretGroup.DELETE("/:name", r.params.SecretHandler.DeleteSecret, reauth)
		}
	}
}
