package middleware

import (
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// DrainAndCloseRequest reads whatever the handler left of the request body, up
// to maxDrain bytes, and closes it. A body larger than that (e.g. an abandoned
// thumbnail upload) is closed without being read to the end.
func DrainAndCloseRequest(maxDrain int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil {
				return
			}
			drained, err := io.Copy(io.Discard, io.LimitReader(r.Body, maxDrain))
			if err != nil {
				log.Tracef("drain request body %s: %s", r.URL.Path, err)
			} else if drained == maxDrain {
				log.Tracef("request body of %s not drained past %d bytes", r.URL.Path, maxDrain)
			}
			_ = r.Body.Close()
		})
	}
}
