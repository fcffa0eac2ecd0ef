package app

import (
	"net/http"

	"busnear.dev/internal/cli"
	"busnear.dev/internal/flow"
	"busnear.dev/internal/report"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps a flow error kind to an HTTP status.
func statusFor(kind flow.Kind) int {
	switch kind {
	case flow.KindUserInputInvalid:
		return http.StatusBadRequest
	case flow.KindNotFound:
		return http.StatusNotFound
	case flow.KindUnresolvableStop:
		return http.StatusUnprocessableEntity
	case flow.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorResponder writes err as a JSON error body. Only unexpected errors
// are sent to Sentry; the rest are the caller's fault or plain misses.
func (app *Application) errorResponder(w http.ResponseWriter, r *http.Request, err error) {
	kind := flow.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		app.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		report.ReportErrorWithSentryOptions(r.Context(), err, report.SentryReportOptions{
			Tags: map[string]string{"kind": string(kind)},
		})
	}

	app.writeJSON(w, status, errorResponse{Error: cli.Message(err), Kind: string(kind)})
}
