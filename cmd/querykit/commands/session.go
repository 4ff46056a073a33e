package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/querykit/api"
	"github.com/kbukum/querykit/bootstrap"
	"github.com/kbukum/querykit/encryption"
	"github.com/kbukum/querykit/httpclient"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/observability"
	"github.com/kbukum/querykit/query"
	"github.com/kbukum/querykit/redis"
	"github.com/kbukum/querykit/resources"
	"github.com/kbukum/querykit/tokenstore"
)

// session is the wiring of one command invocation. The resources are bound
// in an OnStart hook because the adapter only exists once its component has
// started.
type session struct {
	app   *bootstrap.App[*AppConfig]
	cfg   *AppConfig
	log   *logger.Logger
	store tokenstore.Store
	http  *httpclient.Component
	qc    *query.Client
	users *resources.Users
	posts *resources.Posts
}

func (c *CLI) newSession(ctx context.Context, errOut io.Writer) (_ *session, err error) {
	cfg, err := LoadConfig(c.loaderOptions()...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := c.logger
	if log == nil {
		cfg.ApplyDefaults()
		log = logger.NewWithWriter(&cfg.Logging, appName, errOut)
	}
	app, err := bootstrap.NewApp(cfg, bootstrap.WithLogger(log))
	if err != nil {
		return nil, err
	}

	s := &session{app: app, cfg: cfg, log: log}

	shutdown, err := observability.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = shutdown(ctx)
		}
	}()
	app.OnStop(bootstrap.Hook(shutdown))

	if err := s.openStore(c.store); err != nil {
		return nil, err
	}

	s.http = httpclient.NewComponent(cfg.API,
		httpclient.WithLogger(log),
		httpclient.WithTokenStore(s.store),
		httpclient.WithRedirector(loginRedirector(errOut)),
	)
	if err := app.RegisterComponent(s.http); err != nil {
		return nil, err
	}

	s.qc, err = query.New(cfg.Query,
		query.WithLogger(log),
		query.WithMutationErrorHandler(s.mutationFailed),
	)
	if err != nil {
		return nil, err
	}
	if err := app.RegisterComponent(s.qc); err != nil {
		return nil, err
	}

	app.OnStart(s.bind)
	return s, nil
}

// openStore resolves the token store. An explicit store wins over config
// and is used as is. The redis store registers its client first so it
// starts before the adapter needs it. A configured encryption key wraps the
// configured store.
func (s *session) openStore(override tokenstore.Store) error {
	if override != nil {
		s.store = override
		return nil
	}
	switch s.cfg.Auth.Store {
	case StoreMemory:
		s.store = tokenstore.NewMemoryStore()
	case StoreFile:
		s.store = tokenstore.NewFileStore(s.cfg.Auth.File)
	case StoreRedis:
		client, err := redis.New(s.cfg.Redis, s.log)
		if err != nil {
			return err
		}
		if err := s.app.RegisterComponent(redis.NewClientComponent(client)); err != nil {
			return err
		}
		s.store = redis.NewTokenStore(client)
	default:
		return fmt.Errorf("unknown auth store %q", s.cfg.Auth.Store)
	}

	if key := s.cfg.Auth.EncryptionKey; key != "" {
		enc, err := encryption.New(key, encryption.WithAlgorithm(encryption.Algorithm(s.cfg.Auth.Algorithm)))
		if err != nil {
			return err
		}
		s.store = tokenstore.NewEncryptedStore(s.store, enc)
	}
	return nil
}

func (s *session) bind(context.Context) error {
	adapter := s.http.Adapter()
	if adapter == nil {
		return fmt.Errorf("http adapter not started")
	}
	s.users = resources.NewUsers(s.qc, api.NewUsers(adapter), s.log)
	s.posts = resources.NewPosts(s.qc, api.NewPosts(adapter), s.log)
	return nil
}

func (s *session) mutationFailed(_ context.Context, mc *query.MutationContext, err error) {
	s.log.Error("mutation failed", logger.Fields(
		logger.FieldMutationID, mc.ID,
		logger.FieldOperation, mc.Name,
		logger.FieldError, err.Error(),
	))
}

// loginRedirector tells the user to log in again after a 401.
func loginRedirector(w io.Writer) httpclient.Redirector {
	return httpclient.RedirectFunc(func(_ context.Context, path string) {
		_, _ = fmt.Fprintf(w, "Session expired. Run `querykit login` to sign in again (%s).\n", path)
	})
}
