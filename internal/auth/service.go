package auth

import (
	"time"

	"github.com/rs/zerolog"
)

// Service implements single-admin authentication for the dashboard.
// The admin password comes from config; there is no user store.
type Service struct {
	jwtManager      *JWTManager
	passwordManager *PasswordManager
	passwordHash    string
	logger          zerolog.Logger
}

// NewService creates the auth service. An empty password disables
// login entirely. An empty jwtSecret gets a random one, which
// invalidates outstanding sessions on restart.
func NewService(password, jwtSecret string, tokenDuration time.Duration, logger zerolog.Logger) (*Service, error) {
	log := logger.With().Str("component", "auth").Logger()

	if jwtSecret == "" {
		generated, err := RandomSecret()
		if err != nil {
			return nil, err
		}
		jwtSecret = generated
		log.Warn().Msg("JWT_SECRET not set, using an ephemeral secret, sessions will not survive restart")
	}

	if tokenDuration == 0 {
		tokenDuration = 24 * time.Hour
	}

	s := &Service{
		jwtManager:      NewJWTManager(jwtSecret, tokenDuration),
		passwordManager: NewPasswordManager(DefaultBcryptCost),
		logger:          log,
	}

	if password != "" {
		hash, err := s.passwordManager.HashPassword(password)
		if err != nil {
			return nil, err
		}
		s.passwordHash = hash
	}

	return s, nil
}

// GetJWTManager returns the JWT manager for use in middleware
func (s *Service) GetJWTManager() *JWTManager {
	return s.jwtManager
}

// Enabled reports whether password login is configured.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// Login verifies the admin password and issues an access token.
func (s *Service) Login(password string) (*LoginResponse, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	if !s.passwordManager.VerifyPassword(password, s.passwordHash) {
		s.logger.Warn().Msg("login rejected, wrong password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateToken()
	if err != nil {
		return nil, err
	}

	s.logger.Info().Msg("login succeeded")

	return &LoginResponse{
		AccessToken: token,
		ExpiresIn:   s.jwtManager.GetTokenDuration(),
		TokenType:   "Bearer",
	}, nil
}
