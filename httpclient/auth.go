package httpclient

import (
	"context"
	"net/http"

	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/tokenstore"
)

// Redirector sends the user to the login entry point. It is notified and
// never awaited for a result.
type Redirector interface {
	Redirect(ctx context.Context, path string)
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, path string)

// Redirect calls f.
func (f RedirectFunc) Redirect(ctx context.Context, path string) { f(ctx, path) }

// UnauthorizedInterceptor clears the stored token and redirects to
// loginPath once for every 401 response.
func UnauthorizedInterceptor(store tokenstore.Store, key string, r Redirector, loginPath string, log *logger.Logger) ResponseInterceptor {
	return func(ctx context.Context, out *Outcome) {
		if out.Err == nil || out.Response == nil || out.Response.StatusCode != http.StatusUnauthorized {
			return
		}
		if store != nil {
			if err := store.Clear(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("failed to clear auth token", logger.ErrorFields("clear_token", err))
			}
		}
		if r != nil {
			notify(ctx, r, loginPath, log)
		}
	}
}

func notify(ctx context.Context, r Redirector, path string, log *logger.Logger) {
	defer func() {
		if v := recover(); v != nil {
			log.Warn("redirector panicked", logger.Fields("panic", v))
		}
	}()
	r.Redirect(ctx, path)
}
