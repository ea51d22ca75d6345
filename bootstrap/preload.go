package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
)

// PreloadResult is the outcome of warming up one capability.
type PreloadResult struct {
	Capability string        `json:"capability"`
	Kind       string        `json:"kind,omitempty"`
	Loaded     bool          `json:"loaded"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// Preload loads the active backend of each named capability, or of the
// configured preload list when none is named. Capabilities are loaded one
// after the other, each bounded by the preload timeout. A failure never
// stops the others: it is logged and returned in its result.
func (a *App) Preload(ctx context.Context, capabilities ...string) []PreloadResult {
	if len(capabilities) == 0 {
		capabilities = a.Cfg.Backends.Preload
	}
	results := make([]PreloadResult, 0, len(capabilities))
	for _, name := range capabilities {
		results = append(results, a.preloadOne(ctx, name))
	}
	return results
}

func (a *App) preloadOne(ctx context.Context, name string) (res PreloadResult) {
	res.Capability = name
	start := time.Now()
	// reported is false for errors the orchestrator has not seen.
	reported := true

	defer func() {
		if r := recover(); r != nil {
			res.Loaded = false
			res.Err = errors.Internal(fmt.Errorf("preload of %s panicked: %v", name, r))
			reported = false
		}
		res.Duration = time.Since(start)

		fields := logger.Fields(logger.FieldCapability, name, "kind", res.Kind)
		if res.Err == nil {
			fields[logger.FieldDuration] = res.Duration.Milliseconds()
			a.Logger.Info("Capability preloaded", fields)
			return
		}
		res.Error = res.Err.Error()
		if !reported {
			a.Reporter.Report(ctx, res.Err, fields)
		}
		a.Logger.Warn("Capability preload failed", logger.MergeWithError(fields, res.Err))
	}()

	c := a.Capability(name)
	if c == nil {
		res.Err = errors.InvalidInput("capability", "unknown capability "+name)
		reported = false
		return res
	}
	res.Kind = c.KindName()

	timeout := a.Cfg.Backends.PreloadTimeout
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.LoadRequired(lctx, "") {
		res.Loaded = true
		return res
	}
	cause := c.LoadErr()
	if cause == nil {
		cause = fmt.Errorf("backend %s is %s", res.Kind, c.LoadState())
	}
	res.Err = errors.LoadFailed(res.Kind, cause)
	return res
}
