package server

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := AuditLogEntry{
			Timestamp: time.Now().UTC(),
			Method:    r.Method,
			Path:      r.URL.Path,
		}

		if username, _, ok := r.BasicAuth(); ok {
			entry.Username = username
		}
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				entry.Route = tpl
			}
		}
		entry.CaseID = mux.Vars(r)["id"]

		if r.Body != nil {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = string(requestBody)
		}

		tee := newAuditTee(w)
		next.ServeHTTP(tee, r)

		entry.StatusCode = tee.Status()
		entry.Response = string(tee.Body())

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}
