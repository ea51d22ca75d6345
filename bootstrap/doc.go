// Package bootstrap assembles and runs the application.
//
// NewApp validates the configuration, sets up logging and telemetry, and
// builds the shared script runtime plus one orchestrator per capability.
// Everything is registered with a component registry, runtime first, so
// it is stopped last, after every backend that depends on it.
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	app.OnReady(func(ctx context.Context) error {
//	    app.Preload(ctx)
//	    return nil
//	})
//	return app.Run(ctx)
package bootstrap
