package report

import (
	"context"
	"os"
	"runtime"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope tags every event of the process with the deployment and
// the runtime it was built for.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(runtimeTags(env, version))
	})
}

func runtimeTags(env, version string) map[string]string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return map[string]string{
		"env":         env,
		"app_version": version,
		"go_version":  runtime.Version(),
		"platform":    runtime.GOOS + "/" + runtime.GOARCH,
		"host":        host,
	}
}

// SentryReportOptions is the per-event data layered over the process scope.
// A zero Level reports at LevelError.
type SentryReportOptions struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

// ReportError captures err at level.
func ReportError(ctx context.Context, err error, level sentry.Level) {
	ReportErrorWithSentryOptions(ctx, err, SentryReportOptions{Level: level})
}

// ReportErrorWithSentryOptions captures err on the hub bound to ctx, falling
// back to the process hub. The session id carried by ctx, if any, becomes the
// session_id tag. A nil err is ignored.
func ReportErrorWithSentryOptions(ctx context.Context, err error, opts SentryReportOptions) {
	if err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		level := opts.Level
		if level == "" {
			level = sentry.LevelError
		}
		scope.SetLevel(level)

		if id := SessionID(ctx); id != "" {
			scope.SetTag("session_id", id)
		}
		scope.SetTags(opts.Tags)
		if len(opts.ExtraContext) > 0 {
			scope.SetContext("extra", opts.ExtraContext)
		}
		hub.CaptureException(err)
	})
}
