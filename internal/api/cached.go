package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/careloop/hms-backend/internal/cache"
)

type recordingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.buf.Write(p)
	return rw.ResponseWriter.Write(p)
}

// Cached wraps a GET handler with a read-through cache under the given topic.
// The caller's user id is folded into the key so per-user views never leak
// across identities. Only 200 responses are stored.
func Cached(store *cache.Store, topic cache.Topic) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			query := r.URL.Query()
			if ident, ok := IdentityFrom(r.Context()); ok {
				query.Set("uid", strconv.FormatInt(ident.UserID, 10))
			}
			key := cache.Key(topic, r.URL.Path, query)

			if payload, ok := store.Get(r.Context(), key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(payload)
				return
			}

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status == http.StatusOK && rw.buf.Len() > 0 {
				store.Set(r.Context(), key, rw.buf.Bytes(), topic.TTL())
			}
		})
	}
}
