package server

import (
	"bytes"
	"net/http"
)

// auditTee records the status and response body passing through it so the
// audit middleware can log them once the handler returns. Status defaults to
// 200 because handlers that only Write never call WriteHeader.
type auditTee struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func newAuditTee(w http.ResponseWriter) *auditTee {
	return &auditTee{ResponseWriter: w, status: http.StatusOK}
}

func (t *auditTee) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *auditTee) Write(b []byte) (int, error) {
	t.body.Write(b)
	return t.ResponseWriter.Write(b)
}

func (t *auditTee) Status() int {
	return t.status
}

func (t *auditTee) Body() []byte {
	return t.body.Bytes()
}
