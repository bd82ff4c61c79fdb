package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/logging"
	"github.com/dmitrijs2005/baaskit/internal/rest"
)

const storageName = "currentUser"

// Requester is the request pipeline as seen by the user controller.
type Requester interface {
	Request(ctx context.Context, method, path string, data map[string]any, opts ...rest.RequestOption) (json.RawMessage, error)
}

// Controller implements controllers.UserController on top of the storage
// capability and the request pipeline.
type Controller struct {
	cfg       *config.Config
	registry  *controllers.Registry
	requester Requester
	logger    logging.Logger

	mu      sync.Mutex
	loaded  bool
	current *User
}

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func NewController(cfg *config.Config, reg *controllers.Registry, requester Requester, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, registry: reg, requester: requester, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentUser returns a nil interface when nobody is logged in.
func (c *Controller) CurrentUser(ctx context.Context) (controllers.SessionUser, error) {
	u, err := c.Current(ctx)
	if err != nil || u == nil {
		return nil, err
	}
	return u, nil
}

// Current returns the cached user, loading it from storage the first time.
func (c *Controller) Current(ctx context.Context) (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.current, nil
	}

	u, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.current = u
	c.loaded = true
	return u, nil
}

// SetCurrentUser persists u, or forgets the current user when u is nil.
func (c *Controller) SetCurrentUser(ctx context.Context, u *User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	store, err := c.registry.Storage()
	if err != nil {
		return err
	}
	key := c.storageKey()

	if u == nil {
		store.RemoveItem(ctx, key)
		c.current, c.loaded = nil, true
		return nil
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	value := string(raw)
	if cc, ok := c.crypto(); ok {
		if value, err = cc.Encrypt(raw, c.cfg.EncryptionSecret); err != nil {
			return fmt.Errorf("encrypt user: %w", err)
		}
	}

	store.SetItem(ctx, key, value)
	c.current, c.loaded = u, true
	return nil
}

// LogIn authenticates with username and password and makes the result the
// current user.
func (c *Controller) LogIn(ctx context.Context, username, password string) (*User, error) {
	if username == "" {
		return nil, apierror.New(apierror.UsernameMissing, "Cannot log in user with an empty name.")
	}
	if password == "" {
		return nil, apierror.New(apierror.PasswordMissing, "Cannot log in user with an empty password.")
	}

	body, err := c.requester.Request(ctx, http.MethodGet, "login",
		map[string]any{"username": username, "password": password},
		rest.WithSessionToken(""))
	if err != nil {
		return nil, err
	}
	u, err := decodeUser(body)
	if err != nil {
		return nil, err
	}
	if u.Username == "" {
		u.Username = username
	}
	if err := c.SetCurrentUser(ctx, u); err != nil {
		return nil, err
	}
	c.logger.Info(ctx, "logged in", "user", u.ID)
	return u, nil
}

// Become fetches the user owning token and makes it the current user.
func (c *Controller) Become(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, apierror.New(apierror.InvalidSessionToken, "Session token is empty.")
	}

	body, err := c.requester.Request(ctx, http.MethodGet, "users/me", nil, rest.WithSessionToken(token))
	if err != nil {
		return nil, err
	}
	u, err := decodeUser(body)
	if err != nil {
		return nil, err
	}
	if u.Token == "" {
		u.Token = token
	}
	if err := c.SetCurrentUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LogOut revokes the current session and forgets the user locally. Local
// state is cleared even when the server call fails; that failure is
// returned.
func (c *Controller) LogOut(ctx context.Context) error {
	u, err := c.Current(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return common.ErrNoCurrentUser
	}

	var reqErr error
	if u.Token != "" {
		_, reqErr = c.requester.Request(ctx, http.MethodPost, "logout", nil, rest.WithSessionToken(u.Token))
	}
	if err := c.SetCurrentUser(ctx, nil); err != nil {
		return errors.Join(reqErr, err)
	}
	if reqErr != nil {
		c.logger.Warn(ctx, "server logout failed, local session cleared", "error", reqErr)
	}
	return reqErr
}

func (c *Controller) storageKey() string {
	return common.StorageKey(c.cfg.ApplicationID, storageName)
}

func (c *Controller) crypto() (controllers.CryptoController, bool) {
	if !c.cfg.EncryptedUser {
		return nil, false
	}
	cc, err := c.registry.Crypto()
	if err != nil {
		return nil, false
	}
	return cc, true
}

func (c *Controller) load(ctx context.Context) (*User, error) {
	store, err := c.registry.Storage()
	if err != nil {
		return nil, err
	}
	value, ok := store.GetItem(ctx, c.storageKey())
	if !ok || value == "" {
		return nil, nil
	}

	raw := []byte(value)
	if cc, ok := c.crypto(); ok {
		if raw, err = cc.Decrypt(value, c.cfg.EncryptionSecret); err != nil {
			c.logger.Warn(ctx, "stored user could not be decrypted, ignoring it", "error", err)
			return nil, nil
		}
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		c.logger.Warn(ctx, "stored user is malformed, ignoring it", "error", err)
		return nil, nil
	}
	return &u, nil
}

func decodeUser(body json.RawMessage) (*User, error) {
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, apierror.New(apierror.InvalidJSON, "Received an error with invalid JSON from server: "+string(body))
	}
	return &u, nil
}
