package provider

import (
	"context"

	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/logger"
	"github.com/Mulet-J/desktopeye/observability"
)

// Reporter receives every error an orchestrator observes. Report is called
// before the error is logged or returned to the caller.
type Reporter interface {
	Report(ctx context.Context, err error, fields map[string]interface{})
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, err error, fields map[string]interface{})

func (f ReporterFunc) Report(ctx context.Context, err error, fields map[string]interface{}) {
	f(ctx, err, fields)
}

// NopReporter discards reports.
type NopReporter struct{}

func (NopReporter) Report(context.Context, error, map[string]interface{}) {}

type logReporter struct {
	log *logger.Logger
}

// NewLogReporter reports errors as structured warn-level entries.
func NewLogReporter(log *logger.Logger) Reporter {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &logReporter{log: log.WithComponent("reporter")}
}

func (r *logReporter) Report(ctx context.Context, err error, fields map[string]interface{}) {
	f := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		f[k] = v
	}
	f = logger.MergeWithError(f, err)
	if appErr, ok := errors.AsAppError(err); ok {
		f["code"] = string(appErr.Code)
	}
	r.log.WithContext(ctx).Warn("Error reported", f)
}

type metricsReporter struct {
	metrics *observability.Metrics
}

// NewMetricsReporter counts reported errors by code and component.
func NewMetricsReporter(m *observability.Metrics) Reporter {
	return &metricsReporter{metrics: m}
}

func (r *metricsReporter) Report(ctx context.Context, err error, fields map[string]interface{}) {
	code := "UNKNOWN"
	if appErr, ok := errors.AsAppError(err); ok {
		code = string(appErr.Code)
	}
	component, _ := fields[logger.FieldCapability].(string)
	r.metrics.RecordError(ctx, code, component)
}

// MultiReporter fans a report out to every non-nil reporter in order.
func MultiReporter(reporters ...Reporter) Reporter {
	return ReporterFunc(func(ctx context.Context, err error, fields map[string]interface{}) {
		for _, r := range reporters {
			if r != nil {
				r.Report(ctx, err, fields)
			}
		}
	})
}
