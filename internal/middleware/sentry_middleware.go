package middleware

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

// SentryMiddleware binds a cloned Sentry hub to each request, tagged with
// the request method and path, and reports panics before re-raising them.
// Handlers reach the hub through sentry.GetHubFromContext.
func SentryMiddleware(next http.Handler) http.Handler {
	tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.Scope().SetTags(map[string]string{
				"http.method": r.Method,
				"http.path":   r.URL.Path,
			})
		}
		next.ServeHTTP(w, r)
	})

	return sentryhttp.New(sentryhttp.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	}).Handle(tagged)
}
