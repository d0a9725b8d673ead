package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes user credential lookup operations required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) (bool, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// AuthService issues, validates and revokes bearer sessions.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	hasher         PasswordHasher
	tokenGenerator func() (string, error)
	now            func() time.Time
	sessionTTL     time.Duration
	audit          *AuditTrail
	logger         *slog.Logger
}

// AuthServiceConfig groups the optional collaborators of AuthService.
type AuthServiceConfig struct {
	Hasher         PasswordHasher
	TokenGenerator func() (string, error)
	Now            func() time.Time
	SessionTTL     time.Duration
	Audit          *AuditTrail
	Logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, cfg AuthServiceConfig) *AuthService {
	if cfg.Hasher == nil {
		cfg.Hasher = NewArgon2Hasher()
	}
	if cfg.TokenGenerator == nil {
		cfg.TokenGenerator = TokenGenerator(32)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		hasher:         cfg.Hasher,
		tokenGenerator: cfg.TokenGenerator,
		now:            cfg.Now,
		sessionTTL:     cfg.SessionTTL,
		audit:          cfg.Audit,
		logger:         defaultLogger(cfg.Logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil || s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		logOutcome(ctx, logger, err, "authentication", "user_id", result.User.ID)
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verr := s.hasher.Verify(creds.PasswordHash, params.Password); verr != nil {
		if !errors.Is(verr, ErrInvalidCredentials) {
			logger.WarnContext(ctx, "stored password hash unusable", "error", verr)
		}
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.issue(ctx, creds.User.ID)
	if err != nil {
		return
	}

	s.audit.Record(ctx, creds.User.ID, "User with id %q, logged in", creds.User.ID)
	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

func (s *AuthService) issue(ctx context.Context, userID string) (Session, error) {
	token, err := s.tokenGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.now().UTC()
	return s.sessions.CreateSession(ctx, Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
}

// ValidateSession verifies that the token names a live session and returns its
// principal. An expired session is deleted on the way out.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil || s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("AuthService is not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "session rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "session validated", "principal_id", principal.UserID)
	}()

	if trimmed == "" {
		err = ErrUnauthenticated
		return
	}

	var session Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthenticated
		}
		return
	}

	if !s.now().UTC().Before(session.ExpiresAt.UTC()) {
		if _, derr := s.sessions.DeleteSession(ctx, trimmed); derr != nil {
			logger.WarnContext(ctx, "failed to delete expired session", "error", derr)
		}
		err = ErrSessionExpired
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthenticated
		}
		return
	}

	principal = Principal{UserID: user.ID, Username: user.Username, Role: user.RoleName}
	return
}

// RevokeSession deletes the session and reports whether it existed.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (revoked bool, err error) {
	if s == nil || s.sessions == nil {
		return false, fmt.Errorf("AuthService is not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return false, nil
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	defer func() {
		logOutcome(ctx, logger, err, "session revocation", "revoked", revoked)
	}()

	revoked, err = s.sessions.DeleteSession(ctx, trimmed)
	return
}

// SweepExpiredSessions removes every session whose expiry has passed.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) (removed int64, err error) {
	if s == nil || s.sessions == nil {
		return 0, fmt.Errorf("AuthService is not configured")
	}
	removed, err = s.sessions.DeleteExpiredSessions(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.loggerWith(ctx, "SweepExpiredSessions").InfoContext(ctx, "expired sessions removed", "count", removed)
	}
	return removed, nil
}
