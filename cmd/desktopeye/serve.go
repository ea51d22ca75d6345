package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Mulet-J/desktopeye/bootstrap"
	"github.com/Mulet-J/desktopeye/server"
)

var (
	serveHost   string
	servePort   int
	serveBanner bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API until interrupted",
	Long: `Starts every configured backend, preloads the capabilities listed in
backends.preload and serves the local API the desktop UI talks to.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []bootstrap.Option
		if serveBanner {
			opts = append(opts, bootstrap.WithBanner(os.Stdout))
		}
		app, err := newApp(false, opts...)
		if err != nil {
			return err
		}
		if serveHost != "" {
			app.Cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			app.Cfg.Server.Port = servePort
		}

		srv := server.New(app.Cfg.Server, app.Logger, server.WithMetrics(app.Telemetry.Metrics))
		server.RegisterAPI(srv.GinEngine(), app)
		if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
			_ = app.Shutdown(cmd.Context())
			return err
		}
		return app.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveBanner, "banner", true, "print the startup summary")
}
