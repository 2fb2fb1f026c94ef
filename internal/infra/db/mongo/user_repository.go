package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainauth "wanderlust/internal/domain/auth"
	domainuser "wanderlust/internal/domain/user"
	"wanderlust/internal/domain/shared/failure"
)

const (
	usersCollection    = "users"
	sessionsCollection = "sessions"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection)}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, "users.by_id", bson.M{"_id": string(id)})
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	return r.findOne(ctx, "users.by_username", bson.M{"username_key": usernameKey(username)})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, "users.by_email", bson.M{"email": domainuser.NormalizeEmail(email)})
}

// Save maps a unique index violation back to the field that collided.
func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return failure.NewValidation("id", "is required")
	}
	doc := newUserDocument(user)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "email") {
			return domainuser.ErrEmailTaken
		}
		return domainuser.ErrUsernameTaken
	}
	return translate("users.save", err, nil, nil)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate("users.count", err, nil, nil)
	}
	return int(n), nil
}

func (r *UserRepository) findOne(ctx context.Context, op string, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(op, err, domainuser.ErrNotFound, nil)
	}
	return doc.toDomain(), nil
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	UsernameKey  string    `bson:"username_key"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	IsAdmin      bool      `bson:"is_admin"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:           string(u.ID),
		Username:     u.Username,
		UsernameKey:  usernameKey(u.Username),
		Email:        domainuser.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d userDocument) toDomain() *domainuser.User {
	return &domainuser.User{
		ID:           domainuser.ID(d.ID),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		IsAdmin:      d.IsAdmin,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// SessionStore expires documents through a TTL index on expires_at; reads
// also check expiry because the TTL monitor runs only once a minute.
type SessionStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{col: db.Collection(sessionsCollection), now: time.Now}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	doc := sessionDocument{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		Username:  session.Username,
		IsAdmin:   session.IsAdmin,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.Token}, doc, options.Replace().SetUpsert(true))
	return translate("sessions.save", err, nil, nil)
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var doc sessionDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": string(token)}).Decode(&doc); err != nil {
		return nil, translate("sessions.get", err, domainauth.ErrSessionNotFound, nil)
	}
	session := &domainauth.Session{
		Token:     domainauth.Token(doc.Token),
		UserID:    domainuser.ID(doc.UserID),
		Username:  doc.Username,
		IsAdmin:   doc.IsAdmin,
		CreatedAt: doc.CreatedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}
	if session.Expired(s.now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
	return translate("sessions.delete", err, nil, nil)
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"user_id": string(userID)})
	return translate("sessions.delete_by_user", err, nil, nil)
}

type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Username  string    `bson:"username"`
	IsAdmin   bool      `bson:"is_admin"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

var (
	_ domainuser.Repository   = (*UserRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
)
