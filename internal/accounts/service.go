package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniboxhq/unibox/internal/activity"
	"github.com/uniboxhq/unibox/internal/auth"
	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/db"
)

const (
	verificationTokenTTL = 24 * time.Hour
	otpTTL               = 10 * time.Minute
)

// Service implements account flows on Postgres.
type Service struct {
	pool     *pgxpool.Pool
	mailer   Mailer
	activity activity.Recorder
	logger   *slog.Logger

	jwtSecret    string
	jwtExpiresIn time.Duration

	now func() time.Time
}

func NewService(log *slog.Logger, pool *pgxpool.Pool, mailer Mailer, recorder activity.Recorder, cfg config.AuthConfig) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	expiresIn, err := time.ParseDuration(cfg.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("parse jwt_expires_in: %w", err)
	}
	return &Service{
		pool:         pool,
		mailer:       mailer,
		activity:     recorder,
		logger:       log.With(slog.String("service", "accounts")),
		jwtSecret:    cfg.JWTSecret,
		jwtExpiresIn: expiresIn,
		now:          time.Now,
	}, nil
}

// Register creates a new account and emails a verification token. The email
// is best effort; the account exists either way.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	email := normalizeEmail(req.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	token := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, verification_token, verification_token_expires)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, email_verified, created_at`,
		strings.TrimSpace(req.Username), email, string(hash), token, s.now().Add(verificationTokenTTL))
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.EmailVerified, &u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerification(ctx, email, token); err != nil {
			s.logger.Warn("send verification email failed",
				slog.String("email", email),
				slog.Any("error", err))
		}
	}
	if s.activity != nil {
		s.activity.Record(ctx, u.ID, activity.ActionRegister, "", "")
	}
	s.logger.Info("user registered", slog.String("user_id", u.ID))
	return u, nil
}

// Login checks credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	email := normalizeEmail(req.Email)
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, email_verified, created_at
		FROM users WHERE email = $1`, email)
	var u User
	var hash string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &u.EmailVerified, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, expiresAt, err := auth.GenerateToken(u.ID, s.jwtSecret, s.jwtExpiresIn)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	loginAt := s.now().UTC()
	if _, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, u.ID, loginAt); err != nil {
		s.logger.Warn("update last login failed", slog.String("user_id", u.ID), slog.Any("error", err))
	}
	u.LastLogin = loginAt
	if s.activity != nil {
		s.activity.Record(ctx, u.ID, activity.ActionLogin, "", "")
	}
	return Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

// RequestReset generates a short-lived OTP and emails it. Unknown emails
// return nil so the endpoint does not leak which accounts exist.
func (s *Service) RequestReset(ctx context.Context, req ResetRequest) error {
	email := normalizeEmail(req.Email)
	otp, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET otp = $2, otp_expires = $3 WHERE email = $1`,
		email, otp, s.now().Add(otpTTL))
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("reset requested for unknown email")
		return nil
	}
	if s.mailer != nil {
		if err := s.mailer.SendOTP(ctx, email, otp); err != nil {
			return fmt.Errorf("send otp email: %w", err)
		}
	}
	return nil
}

// ConfirmReset checks the OTP and replaces the password. The OTP is single
// use and cleared on success.
func (s *Service) ConfirmReset(ctx context.Context, req ResetConfirmRequest) error {
	email := normalizeEmail(req.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $3, otp = NULL, otp_expires = NULL
		WHERE email = $1 AND otp = $2 AND otp_expires > now()`,
		email, strings.TrimSpace(req.OTP), string(hash))
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidOTP
	}
	s.logger.Info("password reset completed")
	return nil
}

// VerifyEmail marks the account verified when the token matches and has not
// expired.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET email_verified = true, verification_token = NULL, verification_token_expires = NULL
		WHERE verification_token = $1 AND verification_token_expires > now()`,
		strings.TrimSpace(token))
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidOTP
	}
	return nil
}

// GetByID returns the public view of a user.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return User{}, fmt.Errorf("invalid user id: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, email, email_verified, created_at, coalesce(last_login, 'epoch'::timestamptz)
		FROM users WHERE id = $1`, uid)
	var u User
	err = row.Scan(&u.ID, &u.Username, &u.Email, &u.EmailVerified, &u.CreatedAt, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateOTP() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	n := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
