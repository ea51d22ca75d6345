package interpreter

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Mulet-J/desktopeye/config"
)

// ScriptPathEnv lists extra script directories, separated like PATH.
const ScriptPathEnv = "DESKTOPEYE_SCRIPT_PATH"

// Environment locates the runtime's installation.
type Environment struct {
	// Home is the runtime's home directory. It is always first on the
	// search path.
	Home string
	// Library is an optional shared library or bundle the runtime needs.
	// When set it must exist.
	Library string
	// SearchPaths are the directories scripts are looked up in.
	SearchPaths []string
}

// EnvironmentResolver supplies the Environment at initialization time.
type EnvironmentResolver interface {
	Resolve() (Environment, error)
}

// StaticEnvironment resolves to itself.
type StaticEnvironment Environment

func (s StaticEnvironment) Resolve() (Environment, error) {
	env := Environment(s)
	env.SearchPaths = augment(env.Home, env.SearchPaths, nil)
	return env, nil
}

// ConfigEnvironment resolves the environment from the interpreter section
// of the application config. An empty home defaults to
// <user config dir>/<service>/scripts, and ScriptPathEnv entries are
// appended to the search path.
type ConfigEnvironment struct {
	Config      config.InterpreterConfig
	ServiceName string
}

func (c ConfigEnvironment) Resolve() (Environment, error) {
	home := c.Config.Home
	if home == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Environment{}, err
		}
		svc := c.ServiceName
		if svc == "" {
			svc = config.DefaultServiceName
		}
		home = filepath.Join(dir, svc, "scripts")
	}

	var extra []string
	if v := os.Getenv(ScriptPathEnv); v != "" {
		extra = filepath.SplitList(v)
	}

	home = expand(home)
	return Environment{
		Home:        home,
		Library:     expand(c.Config.Library),
		SearchPaths: augment(home, c.Config.SearchPaths, extra),
	}, nil
}

// augment puts home first, then paths and extra, expanded and without
// duplicates or empty entries.
func augment(home string, paths, extra []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 1+len(paths)+len(extra))
	add := func(p string) {
		p = expand(p)
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	add(home)
	for _, p := range paths {
		add(p)
	}
	for _, p := range extra {
		add(p)
	}
	return out
}

func expand(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return filepath.Clean(p)
}
