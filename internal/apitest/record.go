// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Request is one recorded call.
type Request struct {
	Method      string
	Path        string
	ContentType string
	// JSON holds the decoded body for application/json requests.
	JSON map[string]interface{}
	// Form holds multipart values, repeated names in order.
	Form map[string][]string
	// Files maps multipart file field names to uploaded file names.
	Files map[string]string
}

// IsMultipart reports whether the body was multipart form data.
func (r Request) IsMultipart() bool {
	return strings.HasPrefix(r.ContentType, "multipart/form-data")
}

// Requests returns a copy of everything recorded so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns recorded calls matching method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// record captures the request and restores the body for the handler.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
		}

		if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			r.Body.Close()

			switch {
			case isMultipart(r):
				clone := r.Clone(r.Context())
				clone.Body = io.NopCloser(bytes.NewReader(body))
				if err := clone.ParseMultipartForm(32 << 20); err == nil {
					rec.Form = clone.MultipartForm.Value
					rec.Files = make(map[string]string)
					for field, fhs := range clone.MultipartForm.File {
						if len(fhs) > 0 {
							rec.Files[field] = fhs[0].Filename
						}
					}
				}
			case len(body) > 0:
				_ = json.Unmarshal(body, &rec.JSON)
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
