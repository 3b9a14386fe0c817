package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/hrkeeper/internal/client/config"
	"github.com/dmitrijs2005/hrkeeper/internal/client/identityclient"
	"github.com/dmitrijs2005/hrkeeper/internal/client/session"
	"github.com/dmitrijs2005/hrkeeper/internal/flagx"
	"github.com/dmitrijs2005/hrkeeper/internal/identityapi"
)

// Client is the IdentityService surface used by the commands.
type Client interface {
	Register(ctx context.Context, userName, email string, password []byte, role string) (string, string, error)
	Verify(ctx context.Context, userName, code string) error
	ResendVerification(ctx context.Context, userName string) error
	Login(ctx context.Context, userName string, password []byte) (string, error)
	Me(ctx context.Context) (*identityapi.MeResponse, error)
	RequestPasswordReset(ctx context.Context, userName string) error
	CheckPasswordReset(ctx context.Context, userName, token string) error
	ResetPassword(ctx context.Context, userName, token string, newPassword []byte) error
	ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error
	SetSessionToken(token string)
	Close() error
}

// SessionStore keeps the login between runs.
type SessionStore interface {
	Save(ctx context.Context, userName, token string) error
	Load(ctx context.Context) (userName, token string, err error)
	Clear(ctx context.Context) error
	Close() error
}

type App struct {
	config   *config.Config
	in       *bufio.Reader
	out      io.Writer
	client   Client
	sessions SessionStore

	newClient    func(addr string, timeout time.Duration) (Client, error)
	openSessions func(ctx context.Context, path string) (SessionStore, error)
}

func NewApp(in io.Reader, out io.Writer) *App {
	return &App{
		in:  bufio.NewReader(in),
		out: out,
		newClient: func(addr string, timeout time.Duration) (Client, error) {
			return identityclient.New(addr, timeout)
		},
		openSessions: func(ctx context.Context, path string) (SessionStore, error) {
			return session.Open(ctx, path)
		},
	}
}

// options are the persistent flags shared by all commands.
type options struct {
	configFile string
	address    string
	timeout    time.Duration
}

// init loads configuration and opens the client and the session store.
// Explicitly set flags win over the JSON file.
func (a *App) init(ctx context.Context, opts *options, addressSet, timeoutSet bool) error {
	path := opts.configFile
	if path == "" {
		path = os.Getenv(flagx.ConfigEnvName)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if addressSet {
		cfg.ServerEndpointAddr = opts.address
	}
	if timeoutSet {
		cfg.RequestTimeout = opts.timeout
	}
	a.config = cfg

	a.sessions, err = a.openSessions(ctx, cfg.SessionFile)
	if err != nil {
		return err
	}

	a.client, err = a.newClient(cfg.ServerEndpointAddr, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	_, token, err := a.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		a.client.SetSessionToken(token)
	}
	return nil
}

func (a *App) close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	return errors.Join(errs...)
}

// Run executes hrctl with args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	cmd := a.RootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	defer a.close()

	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
