package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	domainauth "wanderlust/internal/domain/auth"
	"wanderlust/internal/domain/shared/failure"
	domainuser "wanderlust/internal/domain/user"
)

// UserRepository keeps users with unique username and email indexes.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[domainuser.ID]*domainuser.User
	byEmail    map[string]domainuser.ID
	byUsername map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[domainuser.ID]*domainuser.User),
		byEmail:    make(map[string]domainuser.ID),
		byUsername: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.byID[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.lookup(r.byEmail, domainuser.NormalizeEmail(email))
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	return r.lookup(r.byUsername, usernameKey(username))
}

func (r *UserRepository) lookup(index map[string]domainuser.ID, key string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := index[key]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	if user, ok := r.byID[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return failure.NewValidation("id", "is required")
	}
	emailKey := domainuser.NormalizeEmail(user.Email)
	nameKey := usernameKey(user.Username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.byEmail[emailKey]; ok && existingID != user.ID {
		return domainuser.ErrEmailTaken
	}
	if existingID, ok := r.byUsername[nameKey]; ok && existingID != user.ID {
		return domainuser.ErrUsernameTaken
	}
	if previous, ok := r.byID[user.ID]; ok {
		delete(r.byEmail, domainuser.NormalizeEmail(previous.Email))
		delete(r.byUsername, usernameKey(previous.Username))
	}
	r.byEmail[emailKey] = user.ID
	r.byUsername[nameKey] = user.ID
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	copyUser := *u
	return &copyUser
}

// SessionStore keeps bearer sessions in memory.
type SessionStore struct {
	mu        sync.RWMutex
	tokens    map[domainauth.Token]*domainauth.Session
	userIndex map[domainuser.ID]map[domainauth.Token]struct{}
	now       func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		tokens:    make(map[domainauth.Token]*domainauth.Session),
		userIndex: make(map[domainuser.ID]map[domainauth.Token]struct{}),
		now:       time.Now,
	}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copySession := *session
	s.tokens[session.Token] = &copySession
	if _, ok := s.userIndex[session.UserID]; !ok {
		s.userIndex[session.UserID] = make(map[domainauth.Token]struct{})
	}
	s.userIndex[session.UserID][session.Token] = struct{}{}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	copySession := *session
	return &copySession, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.tokens[token]
	if !ok {
		return nil
	}
	delete(s.tokens, token)
	if index, ok := s.userIndex[session.UserID]; ok {
		delete(index, token)
		if len(index) == 0 {
			delete(s.userIndex, session.UserID)
		}
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.userIndex[userID]
	if !ok {
		return nil
	}
	for token := range index {
		delete(s.tokens, token)
	}
	delete(s.userIndex, userID)
	return nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
var _ domainauth.SessionStore = (*SessionStore)(nil)
