// Package handler contains the HTTP handlers for the application.
package handler

import (
	"net/http"
	"time"

	"bazaar/internal/delivery/http/response"
	"bazaar/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// userView is the public shape of an account. Credential material never
// leaves the usecase layer.
type userView struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	IsAdmin      bool      `json:"isAdmin"`
	IsSuperadmin bool      `json:"isSuperadmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toUserView(user *entity.User) *userView {
	if user == nil {
		return nil
	}

	return &userView{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		IsAdmin:      user.IsAdmin,
		IsSuperadmin: user.IsSuperadmin,
		CreatedAt:    user.CreatedAt,
	}
}

func clientMeta(c echo.Context) entity.ClientMeta {
	return entity.ClientMeta{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
