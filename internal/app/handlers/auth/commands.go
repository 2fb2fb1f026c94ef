package auth

import (
	"context"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	authsvc "wanderlust/internal/app/services/auth"
)

const (
	registerKey = "auth.register"
	loginKey    = "auth.login"
	logoutKey   = "auth.logout"
)

// Field rules live in the user aggregate; only presence is checked here.
type RegisterCommand struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c RegisterCommand) Key() string { return registerKey }

type RegisterHandler struct {
	Auth *authsvc.Service
}

func (h *RegisterHandler) Handle(ctx context.Context, cmd RegisterCommand) (*dto.AuthSession, error) {
	return session(h.Auth.Register(ctx, authsvc.RegisterParams{
		Username: cmd.Username,
		Email:    cmd.Email,
		Password: cmd.Password,
	}))
}

type LoginCommand struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c LoginCommand) Key() string { return loginKey }

type LoginHandler struct {
	Auth *authsvc.Service
}

func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*dto.AuthSession, error) {
	return session(h.Auth.Login(ctx, authsvc.LoginParams{Login: cmd.Login, Password: cmd.Password}))
}

type LogoutCommand struct {
	Token string `json:"-"`
}

func (c LogoutCommand) Key() string { return logoutKey }

type LogoutHandler struct {
	Auth *authsvc.Service
}

func (h *LogoutHandler) Handle(ctx context.Context, cmd LogoutCommand) (struct{}, error) {
	return struct{}{}, h.Auth.Logout(ctx, cmd.Token)
}

func session(result *authsvc.AuthResult, err error) (*dto.AuthSession, error) {
	if err != nil {
		return nil, err
	}
	return &dto.AuthSession{
		Token:     result.Token,
		ExpiresAt: result.Expires,
		User:      dto.MapUserProfile(result.User),
	}, nil
}

func Register(bus *commands.InMemoryBus, svc *authsvc.Service) {
	commands.RegisterHandler(bus, registerKey, &RegisterHandler{Auth: svc})
	commands.RegisterHandler(bus, loginKey, &LoginHandler{Auth: svc})
	commands.RegisterHandler(bus, logoutKey, &LogoutHandler{Auth: svc})
}
