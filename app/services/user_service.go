package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naturelovers/storefront/app/mails"
	"github.com/naturelovers/storefront/app/models"
	"github.com/naturelovers/storefront/app/repositories"
	"github.com/naturelovers/storefront/pkg/auth"
	"github.com/naturelovers/storefront/pkg/logger"
	"github.com/naturelovers/storefront/pkg/mail"
)

const resetTokenTTL = 15 * time.Minute

const msgUserNotFound = "User not found"

type RegisterInput struct {
	Name     string `json:"name"     validate:"required"           message:"*=All fields (name, email, password, phone) are required"`
	Email    string `json:"email"    validate:"required,email"     message:"required=All fields (name, email, password, phone) are required|email=Please enter a valid email address"`
	Password string `json:"password" validate:"required,min=6"     message:"required=All fields (name, email, password, phone) are required|min=Password must be at least 6 characters long"`
	Phone    string `json:"phone"    validate:"required,phone"     message:"required=All fields (name, email, password, phone) are required|phone=Please enter a valid 10-digit phone number"`
}

func (in *RegisterInput) Normalize() {
	in.Name = normalizeName(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email" message:"required=Email and password are required|email=Please enter a valid email address"`
	Password string `json:"password" validate:"required"       message:"*=Email and password are required"`
}

func (in *LoginInput) Normalize() { in.Email = normalizeEmail(in.Email) }

// ProfileUpdate holds the fields PUT /api/user/me may change.
type ProfileUpdate struct {
	Name  *string `json:"name"  validate:"filled" message:"*=Name cannot be empty"`
	Email *string `json:"email" validate:"email"  message:"*=Please enter a valid email address"`
	Phone *string `json:"phone" validate:"phone"  message:"*=Please enter a valid 10-digit phone number"`
}

func (in *ProfileUpdate) Normalize() {
	if in.Name != nil {
		*in.Name = normalizeName(*in.Name)
	}
	if in.Email != nil {
		*in.Email = normalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		*in.Phone = strings.TrimSpace(*in.Phone)
	}
}

// ForgotPasswordInput is the body of POST /api/user/forgot-password.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email" message:"required=Email is required|email=Please enter a valid email address"`
}

func (in *ForgotPasswordInput) Normalize() { in.Email = normalizeEmail(in.Email) }

// ResetPasswordInput is the body of the reset endpoint; the token may also
// come from the path.
type ResetPasswordInput struct {
	Token    string `json:"token"    validate:"required"       message:"*=Token and password are required"`
	Password string `json:"password" validate:"required,min=6" message:"required=Token and password are required|min=Password must be at least 6 characters long"`
}


// Session is the token pair issued on register and login.
type Session struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         *models.User `json:"user"`
}

// UserService covers accounts, sessions and password resets.
type UserService struct {
	store  repositories.Store
	mailer mail.Mailer
	now    func() time.Time
}

func NewUserService(store repositories.Store, mailer mail.Mailer) *UserService {
	return &UserService{store: store, mailer: mailer, now: time.Now}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// names are stored lower-cased, as accounts always have been
func normalizeName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a customer account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if err := check(&in); err != nil {
		return nil, err
	}

	users := s.store.Users()
	if _, err := users.Conflicting(ctx, in.Email, in.Phone, ""); err == nil {
		return nil, badRequest("Email or phone number already in use")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("services: check duplicate user: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("services: hash password: %w", err)
	}
	u := &models.User{
		ID:       repositories.NewID(),
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := users.Create(ctx, u); err != nil {
		if _, dup := repositories.IsDuplicate(err); dup {
			return nil, badRequest("Email or phone number already in use")
		}
		return nil, fmt.Errorf("services: create user: %w", err)
	}

	sess, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("user registered", "user", u.ID)
	return sess, nil
}

// EnsureAdmin creates an admin account, or promotes the account already
// holding in.Email. It reports whether a new account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, in RegisterInput) (bool, error) {
	in.Email = normalizeEmail(in.Email)
	users := s.store.Users()

	u, err := users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if u.IsAdmin() {
			return false, nil
		}
		u.Role = models.RoleAdmin
		if err := users.Update(ctx, u); err != nil {
			return false, fmt.Errorf("services: promote admin: %w", err)
		}
		logger.WithCtx(ctx).Info("user promoted to admin", "user", u.ID)
		return false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return false, fmt.Errorf("services: find admin: %w", err)
	}

	sess, err := s.Register(ctx, in)
	if err != nil {
		return false, err
	}
	sess.User.Role = models.RoleAdmin
	if err := users.Update(ctx, sess.User); err != nil {
		return false, fmt.Errorf("services: promote admin: %w", err)
	}
	return true, nil
}

// Login checks credentials and rotates the refresh token.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	u, err := s.store.Users().FindByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, badRequest(msgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("services: find user: %w", err)
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, badRequest("Invalid password")
	}
	return s.issue(ctx, u)
}

// issue signs both tokens and stores the refresh token's hash on u.
func (s *UserService) issue(ctx context.Context, u *models.User) (*Session, error) {
	access, err := auth.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	u.RefreshToken = auth.HashToken(refresh)
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, fmt.Errorf("services: store refresh token: %w", err)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// holder resolves the account a refresh token belongs to.
func (s *UserService) holder(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, badRequest("No refresh token found")
	}
	claims, err := auth.ValidateRefreshToken(token)
	if err != nil {
		return nil, badRequest(msgUserNotFound)
	}
	u, err := s.store.Users().FindByRefreshToken(ctx, auth.HashToken(token))
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && u.ID != claims.UserID) {
		return nil, badRequest(msgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("services: find refresh token: %w", err)
	}
	return u, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, token string) (string, error) {
	u, err := s.holder(ctx, token)
	if err != nil {
		return "", err
	}
	return auth.GenerateAccessToken(u.ID, u.Role)
}

// Logout forgets the stored refresh token.
func (s *UserService) Logout(ctx context.Context, token string) error {
	u, err := s.holder(ctx, token)
	if err != nil {
		return err
	}
	u.RefreshToken = ""
	if err := s.store.Users().Update(ctx, u); err != nil {
		return fmt.Errorf("services: clear refresh token: %w", err)
	}
	return nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound(msgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("services: find user: %w", err)
	}
	return u, nil
}

// UpdateMe changes name, email or phone. Email and phone stay unique.
func (s *UserService) UpdateMe(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	if err := check(&in); err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}

	other, err := s.store.Users().Conflicting(ctx, u.Email, u.Phone, u.ID)
	switch {
	case err == nil && other.Email == u.Email:
		return nil, badRequest("email already exists")
	case err == nil:
		return nil, badRequest("phone already exists")
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("services: check duplicate user: %w", err)
	}

	if err := s.store.Users().Update(ctx, u); err != nil {
		if field, dup := repositories.IsDuplicate(err); dup {
			return nil, badRequest(field + " already exists")
		}
		return nil, fmt.Errorf("services: update user: %w", err)
	}
	return u, nil
}

// DeleteMe removes the caller's account and cart. Orders are kept.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return err
		}
		if err := tx.Carts().DeleteByUser(ctx, userID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(msgUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("services: delete user: %w", err)
	}
	return nil
}

// ForgotPassword emails a single-use reset token valid for 15 minutes.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	in := ForgotPasswordInput{Email: email}
	if err := check(&in); err != nil {
		return err
	}
	users := s.store.Users()
	u, err := users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return badRequest(msgUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("services: find user: %w", err)
	}

	token, err := auth.RandomToken(20)
	if err != nil {
		return err
	}
	expires := s.now().Add(resetTokenTTL).UTC()
	u.ResetPasswordToken = auth.HashToken(token)
	u.ResetPasswordExpire = &expires
	if err := users.Update(ctx, u); err != nil {
		return fmt.Errorf("services: store reset token: %w", err)
	}

	msg, err := mails.PasswordReset(u.Email, token)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpire = nil
		if uerr := users.Update(ctx, u); uerr != nil {
			logger.WithCtx(ctx).Error("clear reset token", "user", u.ID, "error", uerr)
		}
		return failure("Failed to send email", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a live reset token.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if err := check(&ResetPasswordInput{Token: token, Password: password}); err != nil {
		return err
	}
	users := s.store.Users()
	u, err := users.FindByResetToken(ctx, auth.HashToken(token), s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return badRequest("Invalid token or token has expired")
	}
	if err != nil {
		return fmt.Errorf("services: find reset token: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("services: hash password: %w", err)
	}
	u.Password = hash
	u.ResetPasswordToken = ""
	u.ResetPasswordExpire = nil
	if err := users.Update(ctx, u); err != nil {
		return fmt.Errorf("services: reset password: %w", err)
	}
	return nil
}

// SweepResetTokens clears reset tokens that have expired.
func (s *UserService) SweepResetTokens(ctx context.Context) (int64, error) {
	n, err := s.store.Users().ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("services: sweep reset tokens: %w", err)
	}
	return n, nil
}
