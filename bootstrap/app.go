package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/querykit/component"
	"github.com/kbukum/querykit/logger"
)

// DefaultGracefulTimeout bounds the shutdown of all components.
const DefaultGracefulTimeout = 15 * time.Second

// App runs a finite task between component startup and shutdown. The type
// parameter C is the config type; any struct embedding config.ServiceConfig
// satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(queryClient)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return listUsers(ctx)
//	})
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration

	onStart []Hook
	onStop  []Hook
}

// NewApp creates an application from a typed config. It applies defaults,
// validates the config and builds the logger from its Logging section.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	log := o.logger
	if log == nil {
		log = logger.New(&base.Logging, base.Name)
		logger.SetGlobal(log)
	}

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(log),
		Logger:          log,
		gracefulTimeout: DefaultGracefulTimeout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
// Components start in registration order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// RunTask starts every component, runs the OnStart hooks and the task, and
// then shuts down. The task sees ctx, so cancelling ctx (for example on
// SIGINT) cancels the task. Shutdown always runs once startup began; a task
// error takes precedence over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		if stopErr := a.stop(ctx); stopErr != nil {
			a.Logger.Warn("shutdown after failed startup", logger.ErrorFields("stop", stopErr))
		}
		return err
	}

	taskErr := task(ctx)

	if stopErr := a.stop(ctx); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.ErrorFields("ready_check", err))
	}

	a.Logger.Debug("started", logger.DurationFields("startup", time.Since(start)))
	return nil
}

// stop runs the OnStop hooks and stops all components within the graceful
// timeout. It is detached from ctx cancellation so a cancelled task still
// releases its components.
func (a *App[C]) stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.ErrorFields("on_stop", err))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	a.Logger.Debug("stopped")
	return shutdownErr
}
