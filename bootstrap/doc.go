// Package bootstrap runs a querykit session: it validates the typed
// configuration, starts registered components in order, runs one task and
// stops the components in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg, bootstrap.WithLogger(log))
//	app.RegisterComponent(adapter)
//	app.RegisterComponent(queryClient)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := users.List(ctx)
//	    return err
//	})
//
// The cmd/querykit commands each run as one task.
package bootstrap
