package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	authapp "wanderlust/internal/app/handlers/auth"
	meapp "wanderlust/internal/app/handlers/me"
	"wanderlust/internal/app/queries"
)

type AuthHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req registerRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cmd := authapp.RegisterCommand{Username: req.Username, Email: req.Email, Password: req.Password}
	session, err := commands.Dispatch[authapp.RegisterCommand, *dto.AuthSession](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h AuthHandler) Login(c *gin.Context) {
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	var req loginRequest
	if !bindJSON(c, &req, false) {
		return
	}
	cmd := authapp.LoginCommand{Login: req.Login, Password: req.Password}
	session, err := commands.Dispatch[authapp.LoginCommand, *dto.AuthSession](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h AuthHandler) Logout(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands")
		return
	}
	cmd := authapp.LogoutCommand{Token: p.Token}
	if _, err := commands.Dispatch[authapp.LogoutCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries")
		return
	}
	profile, err := queries.Ask[meapp.ProfileQuery, dto.UserProfile](c.Request.Context(), h.Queries, meapp.ProfileQuery{Actor: p.Actor()})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

var _ AuthHTTP = AuthHandler{}
