// Command desktopeye runs the OCR, language detection, translation and
// speech backends behind a local API, or one operation from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mulet-J/desktopeye/bootstrap"
	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/version"
)

var (
	configFile string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "desktopeye",
	Short:         "Screen text OCR, translation and speech",
	Long:          "desktopeye reads text from screen captures, detects its language, translates it and reads it aloud.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Get().Short(),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: search ./config.yml, ./cmd/desktopeye/config.yml, user config dir)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file with DESKTOPEYE_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr at debug level")

	rootCmd.AddCommand(serveCmd, ocrCmd, classifyCmd, translateCmd, speakCmd, backendsCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Version
	}
	return cfg, nil
}

// newApp loads the config and builds the application. One-shot commands
// keep logs quiet unless --verbose is set and skip background loading.
func newApp(oneShot bool, opts ...bootstrap.Option) (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if oneShot {
		cfg.Backends.Preload = nil
		opts = append(opts, bootstrap.WithoutBackgroundLoad())
		if !verbose {
			opts = append(opts, bootstrap.WithLogger(logger.Nop()))
		}
	}
	return bootstrap.NewApp(cfg, opts...)
}
