// Package config loads and validates the application configuration.
//
// Values come from a config.yml file (working directory, cmd/desktopeye or
// the per-user config directory), an optional .env file, and environment
// variables prefixed with DESKTOPEYE_. Environment variables win.
//
// # Usage
//
//	cfg, err := config.Load()
//	// or, with an explicit file:
//	cfg, err := config.Load(config.WithConfigFile("/etc/desktopeye.yml"))
//
// Nested keys map to underscore-separated names, so DESKTOPEYE_OCR_LANGUAGES
// sets ocr.languages and DESKTOPEYE_BACKENDS_TRANSLATE sets backends.translate.
package config
