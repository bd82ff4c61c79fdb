package users

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/cryptox"
	"github.com/dmitrijs2005/baaskit/internal/rest"
	"github.com/dmitrijs2005/baaskit/internal/storage"
)

// ---- fake requester ----

type call struct {
	Method string
	Path   string
	Data   map[string]any
	Opts   int
}

type fakeRequester struct {
	calls []call
	body  string
	err   error
}

func (f *fakeRequester) Request(_ context.Context, method, path string, data map[string]any, opts ...rest.RequestOption) (json.RawMessage, error) {
	f.calls = append(f.calls, call{Method: method, Path: path, Data: data, Opts: len(opts)})
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

// ---- helpers ----

func setup(t *testing.T, cfg *config.Config) (*controllers.Registry, *storage.Memory) {
	t.Helper()
	reg := controllers.NewRegistry()
	mem := storage.NewMemory()
	reg.SetStorage(mem)
	reg.SetCrypto(cryptox.AESGCM{})
	return reg, mem
}

// ---- tests ----

func TestCurrentUser_NobodyLoggedIn(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, _ := setup(t, cfg)
	c := NewController(cfg, reg, &fakeRequester{})

	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLogIn_PersistsCurrentUser(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, mem := setup(t, cfg)
	req := &fakeRequester{body: `{"objectId":"u1","username":"alice","sessionToken":"r:t1","email":"a@x.io"}`}
	c := NewController(cfg, reg, req)
	ctx := context.Background()

	u, err := c.LogIn(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "r:t1", u.SessionToken())
	assert.Equal(t, map[string]any{"email": "a@x.io"}, u.Extra)

	require.Len(t, req.calls, 1)
	assert.Equal(t, http.MethodGet, req.calls[0].Method)
	assert.Equal(t, "login", req.calls[0].Path)
	assert.Equal(t, map[string]any{"username": "alice", "password": "pw"}, req.calls[0].Data)
	assert.Equal(t, 1, req.calls[0].Opts)

	stored, ok := mem.GetItem(ctx, "Parse/app/currentUser")
	require.True(t, ok)
	assert.JSONEq(t, `{"objectId":"u1","username":"alice","sessionToken":"r:t1","email":"a@x.io"}`, stored)

	// a fresh controller reads the same user back from storage
	su, err := NewController(cfg, reg, req).CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, su)
	assert.Equal(t, "r:t1", su.SessionToken())
}

func TestLogIn_Validation(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, _ := setup(t, cfg)
	req := &fakeRequester{}
	c := NewController(cfg, reg, req)

	_, err := c.LogIn(context.Background(), "", "pw")
	assert.ErrorIs(t, err, apierror.New(apierror.UsernameMissing, ""))

	_, err = c.LogIn(context.Background(), "alice", "")
	assert.ErrorIs(t, err, apierror.New(apierror.PasswordMissing, ""))

	assert.Empty(t, req.calls)
}

func TestLogIn_ServerError(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, mem := setup(t, cfg)
	req := &fakeRequester{err: apierror.New(101, "Invalid username/password.")}

	_, err := NewController(cfg, reg, req).LogIn(context.Background(), "alice", "bad")
	require.Error(t, err)

	_, ok := mem.GetItem(context.Background(), "Parse/app/currentUser")
	assert.False(t, ok)
}

func TestBecome(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, _ := setup(t, cfg)
	req := &fakeRequester{body: `{"objectId":"u2","username":"bob"}`}
	c := NewController(cfg, reg, req)

	u, err := c.Become(context.Background(), "r:given")
	require.NoError(t, err)
	assert.Equal(t, "r:given", u.Token)
	assert.Equal(t, "users/me", req.calls[0].Path)

	_, err = c.Become(context.Background(), "")
	assert.ErrorIs(t, err, apierror.New(apierror.InvalidSessionToken, ""))
}

func TestLogOut_ClearsEvenOnServerFailure(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, mem := setup(t, cfg)
	req := &fakeRequester{body: `{"objectId":"u1","sessionToken":"r:t1"}`}
	c := NewController(cfg, reg, req)
	ctx := context.Background()

	_, err := c.Become(ctx, "r:t1")
	require.NoError(t, err)

	req.err = apierror.New(apierror.ConnectionFailed, "offline")
	err = c.LogOut(ctx)
	assert.ErrorIs(t, err, apierror.New(apierror.ConnectionFailed, ""))

	assert.Equal(t, "logout", req.calls[len(req.calls)-1].Path)
	assert.Equal(t, http.MethodPost, req.calls[len(req.calls)-1].Method)

	u, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
	_, ok := mem.GetItem(ctx, "Parse/app/currentUser")
	assert.False(t, ok)

	assert.ErrorIs(t, c.LogOut(ctx), common.ErrNoCurrentUser)
}

func TestEncryptedUser(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app", EncryptedUser: true, EncryptionSecret: "s3cret"}
	reg, mem := setup(t, cfg)
	c := NewController(cfg, reg, &fakeRequester{})
	ctx := context.Background()

	require.NoError(t, c.SetCurrentUser(ctx, &User{ID: "u1", Token: "r:t"}))

	stored, ok := mem.GetItem(ctx, "Parse/app/currentUser")
	require.True(t, ok)
	assert.False(t, strings.Contains(stored, "r:t"))

	u, err := NewController(cfg, reg, &fakeRequester{}).Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "r:t", u.Token)

	wrong := &config.Config{ApplicationID: "app", EncryptedUser: true, EncryptionSecret: "other"}
	u, err = NewController(wrong, reg, &fakeRequester{}).Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestCurrent_MalformedStoredUserIgnored(t *testing.T) {
	cfg := &config.Config{ApplicationID: "app"}
	reg, mem := setup(t, cfg)
	mem.SetItem(context.Background(), "Parse/app/currentUser", "{not json")

	u, err := NewController(cfg, reg, &fakeRequester{}).Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUser_JSON(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"objectId":"u","sessionToken":"t","age":3}`), &u))
	assert.Equal(t, "u", u.ID)
	assert.Equal(t, "t", u.Token)
	assert.Equal(t, map[string]any{"age": float64(3)}, u.Extra)

	assert.Error(t, json.Unmarshal([]byte(`{"objectId":5}`), &u))

	var nilUser *User
	assert.Empty(t, nilUser.SessionToken())
}
