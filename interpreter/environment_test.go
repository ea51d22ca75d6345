package interpreter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mulet-J/desktopeye/config"
)

func TestStaticEnvironmentPutsHomeFirst(t *testing.T) {
	env, err := StaticEnvironment{Home: "/opt/scripts", SearchPaths: []string{"/usr/share/de", "/opt/scripts", ""}}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := []string{"/opt/scripts", "/usr/share/de"}
	if len(env.SearchPaths) != len(want) {
		t.Fatalf("expected %v, got %v", want, env.SearchPaths)
	}
	for i := range want {
		if env.SearchPaths[i] != want[i] {
			t.Errorf("SearchPaths[%d] = %q, want %q", i, env.SearchPaths[i], want[i])
		}
	}
}

func TestConfigEnvironmentAugmentsFromEnv(t *testing.T) {
	home := t.TempDir()
	extra := t.TempDir()
	t.Setenv(ScriptPathEnv, extra)

	env, err := ConfigEnvironment{Config: config.InterpreterConfig{
		Home:        home,
		Library:     filepath.Join(home, "lib.so"),
		SearchPaths: []string{"/srv/scripts"},
	}}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if env.Home != home || env.Library != filepath.Join(home, "lib.so") {
		t.Errorf("unexpected home/library %q %q", env.Home, env.Library)
	}
	want := []string{home, "/srv/scripts", extra}
	if len(env.SearchPaths) != 3 {
		t.Fatalf("expected %v, got %v", want, env.SearchPaths)
	}
	for i := range want {
		if env.SearchPaths[i] != want[i] {
			t.Errorf("SearchPaths[%d] = %q, want %q", i, env.SearchPaths[i], want[i])
		}
	}
}

func TestConfigEnvironmentDefaultHome(t *testing.T) {
	dir, err := os.UserConfigDir()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	t.Setenv(ScriptPathEnv, "")

	env, err := ConfigEnvironment{}.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := filepath.Join(dir, config.DefaultServiceName, "scripts"); env.Home != want {
		t.Errorf("expected home %q, got %q", want, env.Home)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := expand("~/scripts"); got != filepath.Join(home, "scripts") {
		t.Errorf("expand(~/scripts) = %q", got)
	}
	if got := expand("  "); got != "" {
		t.Errorf("expand of blank = %q", got)
	}
}
