package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"community-service/internal/models"
	"community-service/internal/repositories"
)

// Store reflects the authenticated user for one client session: the current
// profile or none, plus a loading flag that stays set until the first Restore
// completes. Credential verification itself is delegated to the token layer;
// this component only reflects its result.
type Store struct {
	users  repositories.UserRepository
	tokens *Tokens
	log    *zap.SugaredLogger

	mu      sync.RWMutex
	current *models.User
	loading bool
}

// NewStore constructs a Store in the loading state.
func NewStore(users repositories.UserRepository, tokens *Tokens, log *zap.SugaredLogger) *Store {
	return &Store{users: users, tokens: tokens, log: log, loading: true}
}

// SignUp creates the profile row and signs the new user in.
func (s *Store) SignUp(ctx context.Context, email, fullName string) (models.User, string, error) {
	user, err := s.users.CreateUser(ctx, email, fullName)
	if err != nil {
		return models.User{}, "", err
	}
	return s.establish(user)
}

// SignIn resolves the profile for an email and signs it in.
func (s *Store) SignIn(ctx context.Context, email string) (models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, "", err
	}
	return s.establish(user)
}

// SignOut clears the current session.
func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Restore resolves a persisted session token on process start. An empty or
// invalid token leaves the store signed out; either way the loading flag is
// cleared so the caller can stop gating on it.
func (s *Store) Restore(ctx context.Context, token string) (bool, error) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if token == "" {
		return false, nil
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		s.log.Infow("session restore rejected", "error", err)
		return false, nil
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	return true, nil
}

// Current returns the signed-in user, if any.
func (s *Store) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.User{}, false
	}
	return *s.current, true
}

// Loading reports whether the initial session restore is still pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Verify validates a session token and returns the user id it carries.
func (s *Store) Verify(token string) (string, error) {
	return s.tokens.Verify(token)
}

func (s *Store) establish(user models.User) (models.User, string, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", err
	}

	s.mu.Lock()
	s.current = &user
	s.loading = false
	s.mu.Unlock()
	return user, token, nil
}
