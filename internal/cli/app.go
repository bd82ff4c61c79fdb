package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/files"
	"github.com/dmitrijs2005/baaskit/internal/rest"
	"github.com/dmitrijs2005/baaskit/internal/sdk"
	"github.com/dmitrijs2005/baaskit/internal/users"
)

var (
	ErrUsage       = errors.New("usage")
	ErrKeyNotFound = errors.New("key not found")
	ErrNoStorage   = errors.New("no storage configured")
)

const usageText = `usage: baas [flags] <command>

commands:
  request <METHOD> <path> [json]   send a request through the pipeline
  upload <name>                    upload a file from the files directory
  login <username>                 log in, password is read from the terminal
  logout                           end the current session
  whoami                           print the current user
  installation                     print the installation id
  storage get|set|rm|clear ...     inspect local storage`

// backend is the part of the SDK client the commands use.
type backend interface {
	Request(ctx context.Context, method, path string, data map[string]any, opts ...rest.RequestOption) (json.RawMessage, error)
	NewFile(name string) *files.File
	SaveFile(ctx context.Context, f *files.File) (*files.File, error)
	InstallationID(ctx context.Context) (string, error)
	Storage() controllers.StorageController
}

type sessions interface {
	LogIn(ctx context.Context, username, password string) (*users.User, error)
	LogOut(ctx context.Context) error
	Current(ctx context.Context) (*users.User, error)
}

type App struct {
	backend  backend
	sessions sessions
	reader   *bufio.Reader
	out      io.Writer
	errOut   io.Writer
}

func NewApp(c *sdk.Client, in io.Reader, out, errOut io.Writer) *App {
	return newApp(c, c.Users(), in, out, errOut)
}

func newApp(b backend, s sessions, in io.Reader, out, errOut io.Writer) *App {
	return &App{backend: b, sessions: s, reader: bufio.NewReader(in), out: out, errOut: errOut}
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	err := a.dispatch(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(a.errOut, usageText)
		return 2
	default:
		fmt.Fprintln(a.errOut, err)
		return 1
	}
}

func (a *App) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "request":
		return a.request(ctx, args)
	case "upload":
		return a.upload(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.sessions.LogOut(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "installation":
		id, err := a.backend.InstallationID(ctx)
		if err != nil {
			return err
		}
		return a.writeJSON(map[string]string{"installationId": id})
	case "storage":
		return a.storage(ctx, args)
	case "help":
		fmt.Fprintln(a.out, usageText)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) request(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	var data map[string]any
	if len(args) == 3 {
		if err := json.Unmarshal([]byte(args[2]), &data); err != nil {
			return fmt.Errorf("request body: %w", err)
		}
	}
	body, err := a.backend.Request(ctx, strings.ToUpper(args[0]), args[1], data)
	if err != nil {
		return err
	}
	return a.writeRaw(body)
}

func (a *App) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	f, err := a.backend.SaveFile(ctx, a.backend.NewFile(args[0]))
	if err != nil {
		return err
	}
	url, _ := f.URL()
	return a.writeJSON(map[string]string{"name": f.Name(), "url": url})
}

func (a *App) login(ctx context.Context, args []string) error {
	var username string
	switch len(args) {
	case 0:
		var err error
		if username, err = GetSimpleText(a.reader, "-Enter username", a.errOut); err != nil {
			return err
		}
	case 1:
		username = args[0]
	default:
		return ErrUsage
	}

	password, err := GetPassword(a.errOut)
	if err != nil {
		return err
	}
	u, err := a.sessions.LogIn(ctx, username, password)
	if err != nil {
		return err
	}
	return a.writeJSON(u)
}

func (a *App) whoami(ctx context.Context) error {
	u, err := a.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return common.ErrNoCurrentUser
	}
	return a.writeJSON(u)
}

func (a *App) storage(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	s := a.backend.Storage()
	if s == nil {
		return ErrNoStorage
	}

	switch {
	case args[0] == "get" && len(args) == 2:
		v, ok := s.GetItem(ctx, args[1])
		if !ok {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, args[1])
		}
		return a.writeJSON(v)
	case args[0] == "set" && len(args) == 3:
		s.SetItem(ctx, args[1], args[2])
		return nil
	case args[0] == "rm" && len(args) == 2:
		s.RemoveItem(ctx, args[1])
		return nil
	case args[0] == "clear" && len(args) == 1:
		s.Clear(ctx)
		return nil
	default:
		return ErrUsage
	}
}

func (a *App) writeJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *App) writeRaw(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out, buf.String())
	return err
}
