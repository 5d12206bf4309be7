package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medassist-ai/internal/medical"
	"github.com/wolfman30/medassist-ai/internal/persistence"
	"github.com/wolfman30/medassist-ai/internal/transport"
)

// RegisterRequest carries the registration form. Password is plain text; it
// is hashed before it leaves the controller.
type RegisterRequest struct {
	Username  string
	Password  string
	BasicInfo medical.BasicInfo
}

// Hydrate restores a persisted session. Only the presence of a stored token
// is checked. An unreadable conversation snapshot degrades to an empty list.
func (c *Controller) Hydrate(ctx context.Context) error {
	token, err := c.store.Token(ctx)
	if err != nil {
		c.metrics.ObservePersistenceError("load_token")
		c.logger.Error("failed to read stored token", "error", err)
		return fmt.Errorf("session: hydrate: %w", err)
	}

	c.mu.Lock()
	if token == "" {
		c.resetLocked()
		c.unlockAndEmit()
		return nil
	}
	username, err := c.store.Username(ctx)
	if err != nil {
		c.metrics.ObservePersistenceError("load_username")
		c.logger.Warn("failed to read stored username", "error", err)
	}
	c.loggedIn = true
	c.username = username
	c.conversations = c.loadConversationsLocked(ctx)
	c.currentID = ""
	c.view = ViewHome
	c.unlockAndEmit()
	c.logger.Info("session restored", "username", username)
	return nil
}

// Login authenticates against the backend and persists the token.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	token, err := c.transport.Login(ctx, transport.LoginRequest{
		Username: username,
		Password: transport.HashPassword(password),
	})
	if err != nil {
		c.metrics.ObserveAuth("login", "error")
		c.logger.Warn("login failed", "username", username, "error", err)
		return fmt.Errorf("session: login: %w", err)
	}
	if token == "" {
		c.metrics.ObserveAuth("login", "error")
		return fmt.Errorf("session: login: %w", transport.ErrMissingToken)
	}

	c.mu.Lock()
	saveErr := c.store.SaveAuth(ctx, token, username)
	if saveErr != nil {
		c.metrics.ObservePersistenceError("save_auth")
		c.logger.Error("failed to persist auth", "error", saveErr)
	}
	c.epoch++
	c.loggedIn = true
	c.username = username
	c.conversations = c.loadConversationsLocked(ctx)
	c.currentID = ""
	c.view = ViewHome
	c.unlockAndEmit()

	c.metrics.ObserveAuth("login", "ok")
	c.logger.Info("login succeeded", "username", username)
	if saveErr != nil {
		return fmt.Errorf("session: login: %w", saveErr)
	}
	return nil
}

// Register creates an account, then applies the configured RegisterPolicy.
func (c *Controller) Register(ctx context.Context, req RegisterRequest) error {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return ErrMissingCredentials
	}
	err := c.transport.Register(ctx, transport.RegisterRequest{
		Username:  username,
		Password:  transport.HashPassword(req.Password),
		BasicInfo: req.BasicInfo,
	})
	if err != nil {
		c.metrics.ObserveAuth("register", "error")
		c.logger.Warn("registration failed", "username", username, "error", err)
		return fmt.Errorf("session: register: %w", err)
	}
	c.metrics.ObserveAuth("register", "ok")
	c.logger.Info("registration succeeded", "username", username, "policy", c.registerPolicy.String())

	if c.registerPolicy == RegisterAutoLogin {
		return c.Login(ctx, username, req.Password)
	}
	c.mu.Lock()
	if !c.loggedIn {
		c.view = ViewLogin
	}
	c.unlockAndEmit()
	return nil
}

// Logout forgets the session in memory and in storage.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.resetLocked()
	err := c.store.Clear(ctx)
	if err != nil {
		c.metrics.ObservePersistenceError("clear")
		c.logger.Error("failed to clear stored session", "error", err)
	}
	c.unlockAndEmit()
	c.metrics.ObserveAuth("logout", "ok")
	if err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

// ShowRegister switches the logged-out screen to the registration form.
func (c *Controller) ShowRegister() error {
	return c.switchForm(ViewRegister)
}

// ShowLogin switches the logged-out screen to the login form.
func (c *Controller) ShowLogin() error {
	return c.switchForm(ViewLogin)
}

func (c *Controller) switchForm(v View) error {
	c.mu.Lock()
	if c.loggedIn {
		c.mu.Unlock()
		return ErrAlreadyLoggedIn
	}
	c.view = v
	c.unlockAndEmit()
	return nil
}

// resetLocked returns to the logged-out state. The epoch bump makes any
// in-flight turn drop its result.
func (c *Controller) resetLocked() {
	c.epoch++
	c.loggedIn = false
	c.username = ""
	c.conversations = []medical.Conversation{}
	c.currentID = ""
	c.view = ViewLogin
	c.inFlight = make(map[string]bool)
	c.recommending = make(map[string]bool)
}

func (c *Controller) loadConversationsLocked(ctx context.Context) []medical.Conversation {
	list, err := c.store.Conversations(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrCorruptSnapshot) {
			c.metrics.ObservePersistenceError("corrupt_snapshot")
		} else {
			c.metrics.ObservePersistenceError("load_conversations")
		}
		c.logger.Warn("starting with an empty conversation list", "error", err)
	}
	if list == nil {
		list = []medical.Conversation{}
	}
	return list
}
