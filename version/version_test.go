package version

import (
	"strings"
	"testing"
)

func restore() func() {
	v, c, b := Version, Commit, BuildTime
	return func() { Version, Commit, BuildTime = v, c, b }
}

func TestGetUsesLinkerVariables(t *testing.T) {
	defer restore()()
	Version, Commit, BuildTime = "1.4.0", "0123456789abcdef", "2026-03-01T10:00:00Z"

	info := Get()
	if info.Version != "1.4.0" {
		t.Errorf("version = %q", info.Version)
	}
	if info.Commit != "0123456" {
		t.Errorf("commit should be shortened, got %q", info.Commit)
	}
	if info.BuildTime.Year() != 2026 {
		t.Errorf("build time = %v", info.BuildTime)
	}
	if info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Errorf("runtime fields missing: %+v", info)
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", Commit: "abc1234"}, "1.0.0-abc1234"},
		{Info{Version: "1.0.0", Commit: "abc1234", Dirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	s := Info{Version: "1.0.0", GoVersion: "go1.25.3", Platform: "linux/amd64"}.String()
	if s != "1.0.0 (go1.25.3, linux/amd64, no cgo)" {
		t.Errorf("String() = %q", s)
	}
	s = Info{Version: "1.0.0", GoVersion: "go1.25.3", Platform: "linux/amd64", CGO: true}.String()
	if strings.Contains(s, "no cgo") {
		t.Errorf("String() = %q", s)
	}
}
