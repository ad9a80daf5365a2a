// Package devtoken implements the operator tool that issues and revokes
// developer tokens. The owner authenticates with username and password
// before anything is written.
package devtoken

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/mediapub/internal/common"
	"github.com/dmitrijs2005/mediapub/internal/cryptox"
	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server"
	"github.com/dmitrijs2005/mediapub/internal/server/config"
	"github.com/dmitrijs2005/mediapub/internal/server/models"
	"github.com/dmitrijs2005/mediapub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/google/uuid"
)

const usage = `usage:
  devtoken issue  [-d dsn] [-u username] -name NAME [-scope SCOPE] [-valid DURATION] [-replace]
  devtoken revoke [-d dsn] [-u username] -name NAME`

// ErrUsage is returned for unknown subcommands and bad flags.
var ErrUsage = errors.New(usage)

// Backend is the part of the server services the tool drives.
type Backend interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Issue(ctx context.Context, req services.DevTokenRequest) (string, *models.DevToken, error)
	Revoke(ctx context.Context, userID uuid.UUID, name string) (int64, error)
}

// Opener connects a Backend to the database at dsn. The returned func
// releases it.
type Opener func(ctx context.Context, dsn string) (Backend, func(), error)

type Tool struct {
	open   Opener
	reader *bufio.Reader
	out    io.Writer
}

func New(open Opener, in io.Reader, out io.Writer) *Tool {
	return &Tool{open: open, reader: bufio.NewReader(in), out: out}
}

type commonFlags struct {
	dsn      string
	username string
	name     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	defaults := &config.Config{}
	defaults.LoadDefaults()

	fs.StringVar(&c.dsn, "d", defaults.DatabaseDSN, "database DSN")
	fs.StringVar(&c.username, "u", "", "username (prompted when empty)")
	fs.StringVar(&c.name, "name", "", "token name")
}

// Run executes the subcommand named by args[0].
func (t *Tool) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "issue":
		return t.issue(ctx, args[1:])
	case "revoke":
		return t.revoke(ctx, args[1:])
	default:
		return ErrUsage
	}
}

func (t *Tool) issue(ctx context.Context, args []string) error {
	var (
		cf      commonFlags
		scope   string
		valid   time.Duration
		replace bool
	)
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cf.register(fs)
	fs.StringVar(&scope, "scope", services.DefaultDevTokenScope, "token scope")
	fs.DurationVar(&valid, "valid", services.DefaultDevTokenValidity, "token validity")
	fs.BoolVar(&replace, "replace", false, "revoke live tokens with the same name")
	if err := fs.Parse(args); err != nil || cf.name == "" {
		return ErrUsage
	}

	b, closeFn, user, err := t.login(ctx, cf)
	if err != nil {
		return err
	}
	defer closeFn()

	token, dt, err := b.Issue(ctx, services.DevTokenRequest{
		UserID:   user.ID,
		Name:     cf.name,
		Scope:    scope,
		ValidFor: valid,
		Replace:  replace,
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintf(t.out, "token:   %s\n", token)
	fmt.Fprintf(t.out, "name:    %s\n", dt.Name)
	fmt.Fprintf(t.out, "scope:   %s\n", dt.Scope)
	fmt.Fprintf(t.out, "expires: %s\n", dt.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintln(t.out, "The token is shown only once.")
	return nil
}

func (t *Tool) revoke(ctx context.Context, args []string) error {
	var cf commonFlags
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cf.register(fs)
	if err := fs.Parse(args); err != nil || cf.name == "" {
		return ErrUsage
	}

	b, closeFn, user, err := t.login(ctx, cf)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := b.Revoke(ctx, user.ID, cf.name)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("no live token named %q", cf.name)
		}
		return fmt.Errorf("revoke token: %w", err)
	}

	fmt.Fprintf(t.out, "revoked %d token(s) named %q\n", n, cf.name)
	return nil
}

// login prompts for missing credentials, opens the backend and
// authenticates the owner.
func (t *Tool) login(ctx context.Context, cf commonFlags) (Backend, func(), *models.User, error) {
	username := cf.username
	if username == "" {
		var err error
		if username, err = getSimpleText(t.reader, "Username", t.out); err != nil {
			return nil, nil, nil, err
		}
	}

	password, err := getPassword(t.out)
	if err != nil {
		return nil, nil, nil, err
	}
	defer cryptox.WipeByteArray(password)

	b, closeFn, err := t.open(ctx, cf.dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}

	user, err := b.Authenticate(ctx, username, string(password))
	if err != nil {
		closeFn()
		switch common.KindOf(err) {
		case common.KindInvalidCredential:
			return nil, nil, nil, errors.New("username or password is invalid")
		case common.KindUserInactive:
			return nil, nil, nil, errors.New("user inactive")
		}
		return nil, nil, nil, err
	}
	return b, closeFn, user, nil
}

type serviceBackend struct {
	*services.UserService
	*services.DevTokenService
}

// OpenPostgres is the Opener used by cmd/devtoken.
func OpenPostgres(ctx context.Context, dsn string) (Backend, func(), error) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = dsn
	cfg.DatabaseMaxConns = 2

	pool, db, err := server.OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		_ = db.Close()
		pool.Close()
	}

	m := repomanager.NewPostgresRepositoryManager(repomanager.WithCallTimeout(cfg.DatabaseAcquireTimeout))
	if err := m.RunMigrations(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}

	logger := logging.New(logging.Config{Level: "warn", Format: logging.FormatText, Writer: os.Stderr})
	sessions := services.NewSessionManager(db, m, logger)
	return serviceBackend{
		UserService:     services.NewUserService(db, m, sessions, logger),
		DevTokenService: services.NewDevTokenService(db, m, logger),
	}, closeFn, nil
}
