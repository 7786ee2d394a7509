package folio

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/auth"
)

// LoginUser is the public part of the signed-in account.
type LoginUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// LoginResponse is the body of a successful POST /api/auth/login.
type LoginResponse struct {
	Success   bool      `json:"success"`
	User      LoginUser `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *App) apiLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	user, err := a.login(c, req)
	if err != nil {
		return err
	}
	token, expires, err := a.Tokens.Issue(auth.Principal{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	})
	if err != nil {
		return err
	}
	a.logger.Info().Int64("user_id", user.ID).Msg("api login")
	return c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		User: LoginUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
		Token:     token,
		ExpiresAt: expires,
	})
}
