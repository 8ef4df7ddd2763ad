package controllers

import (
	"github.com/naturelovers/storefront/app/services"
	"github.com/naturelovers/storefront/pkg/ctx"
)

// UserController serves /api/user.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

func (h *UserController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := h.users.Register(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	setRefreshCookie(c, session.RefreshToken)
	c.Created("User created successfully", session)
}

func (h *UserController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	session, err := h.users.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	setRefreshCookie(c, session.RefreshToken)
	c.Success("Logged in successfully", map[string]any{
		"accessToken": session.AccessToken,
		"user":        session.User,
	})
}

// refreshToken reads the cookie, falling back to the JSON body for clients
// that cannot keep cookies.
func (h *UserController) refreshToken(c *ctx.Context) string {
	if v, err := c.Cookie(refreshCookie); err == nil && v != "" {
		return v
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.DecodeJSON(&body)
	return body.RefreshToken
}

func (h *UserController) Refresh(c *ctx.Context) {
	token, err := h.users.Refresh(c.Context(), h.refreshToken(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("Access token refreshed successfully", map[string]string{"accessToken": token})
}

func (h *UserController) Logout(c *ctx.Context) {
	if err := h.users.Logout(c.Context(), h.refreshToken(c)); err != nil {
		fail(c, err)
		return
	}
	c.ClearCookie(refreshCookie, true)
	c.Success("Logged out successfully", nil)
}

func (h *UserController) Me(c *ctx.Context) {
	u, err := h.users.Me(c.Context(), c.UserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("User data retrieved successfully", map[string]any{"user": u})
}

func (h *UserController) UpdateMe(c *ctx.Context) {
	var in services.ProfileUpdate
	if !c.BindJSON(&in) {
		return
	}
	u, err := h.users.UpdateMe(c.Context(), c.UserID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success("User data updated successfully", map[string]any{"user": u})
}

func (h *UserController) DeleteMe(c *ctx.Context) {
	if err := h.users.DeleteMe(c.Context(), c.UserID()); err != nil {
		fail(c, err)
		return
	}
	c.ClearCookie(refreshCookie, true)
	c.Success("User deleted successfully", nil)
}

func (h *UserController) ForgotPassword(c *ctx.Context) {
	var in services.ForgotPasswordInput
	if !c.BindJSON(&in) {
		return
	}
	if err := h.users.ForgotPassword(c.Context(), in.Email); err != nil {
		fail(c, err)
		return
	}
	c.Success("Email sent successfully", nil)
}

func (h *UserController) ResetPassword(c *ctx.Context) {
	var in services.ResetPasswordInput
	if !decode(c, &in) {
		return
	}
	if in.Token == "" {
		in.Token = c.Param("token")
	}
	if err := h.users.ResetPassword(c.Context(), in.Token, in.Password); err != nil {
		fail(c, err)
		return
	}
	c.Success("Password reset successfully", nil)
}
