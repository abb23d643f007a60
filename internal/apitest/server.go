// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest runs an in-memory RAG backend for tests.
//
// The fake mirrors the backend's routes and JSON shapes, keeps users,
// threads, files and folders in memory, and records every request so tests
// can assert on encodings (JSON vs multipart) and fields.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jeranaias/ragchat-tui/internal/api"
)

// Server is a running fake backend.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	requests    []Request
	users       map[string]*user
	nextUserID  int
	threads     map[string]*api.ThreadDetail
	files       map[string][]api.File
	folders     map[string][]api.Folder
	folderFiles map[string][]api.File
	failures    map[string]failure
	delay       map[string]time.Duration

	// Answer produces assistant replies. Defaults to echoing the query.
	Answer func(query string) string
}

type user struct {
	id       int
	email    string
	password string
	role     string
}

type failure struct {
	status  int
	message string
}

// New starts a fake backend closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:       make(map[string]*user),
		nextUserID:  1,
		threads:     make(map[string]*api.ThreadDetail),
		files:       make(map[string][]api.File),
		folders:     make(map[string][]api.Folder),
		folderFiles: make(map[string][]api.File),
		failures:    make(map[string]failure),
		delay:       make(map[string]time.Duration),
		Answer:      func(q string) string { return "Answer: " + q },
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.inject)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Route("/file", func(r chi.Router) {
			r.Post("/upload/{userID}", s.handleUpload)
			r.Get("/get_files/{userID}", s.handleListFiles)
			r.Delete("/delete_file/{userID}/{fileID}", s.handleDeleteFile)
		})

		r.Route("/folders/{userID}", func(r chi.Router) {
			r.Get("/", s.handleListFolders)
			r.Post("/", s.handleCreateFolder)
			r.Delete("/{folderID}", s.handleDeleteFolder)
			r.Get("/{folderID}/files", s.handleFolderFiles)
		})
	})

	r.Get("/chat/threads", s.handleThreads)
	r.Get("/chats/{chatID}", s.handleThread)
	r.Delete("/chats/{chatID}", s.handleDeleteThread)
	r.Post("/query", s.handleQuery)

	return r
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

// AddUser registers an account and returns its numeric id as a string.
func (s *Server) AddUser(email, password, role string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.Itoa(s.addUserLocked(email, password, role).id)
}

func (s *Server) addUserLocked(email, password, role string) *user {
	u := &user{id: s.nextUserID, email: email, password: password, role: role}
	s.nextUserID++
	s.users[email] = u
	return u
}

// AddThread stores a thread with the given messages.
func (s *Server) AddThread(id, title string, messages ...api.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	s.threads[id] = &api.ThreadDetail{ID: id, Title: title, Messages: messages, CreatedAt: now, UpdatedAt: now}
}

// AddFolder stores a folder for userID and returns it.
func (s *Server) AddFolder(userID, name string) api.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addFolderLocked(userID, name)
}

func (s *Server) addFolderLocked(userID, name string) api.Folder {
	f := api.Folder{
		FolderID:     uuid.NewString(),
		FolderName:   name,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		VectorDBName: "vdb_" + userID + "_" + name,
	}
	s.folders[userID] = append(s.folders[userID], f)
	return f
}

// Fail makes method+path answer with status and an {"error"} body.
// An empty message sends a body without an error field.
func (s *Server) Fail(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status, message}
}

// Delay holds responses to method+path for d, or until the client gives up.
func (s *Server) Delay(method, path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[method+" "+path] = d
}

// Folder returns the stored folder, for asserting on file counts.
func (s *Server) Folder(userID, folderID string) (api.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders[userID] {
		if f.FolderID == folderID {
			return f, true
		}
	}
	return api.Folder{}, false
}

// ThreadCount returns how many threads are stored.
func (s *Server) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// inject applies Fail and Delay settings.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		f, failing := s.failures[key]
		d := s.delay[key]
		s.mu.Unlock()

		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if f.message == "" {
				writeJSON(w, f.status, map[string]string{})
				return
			}
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (u *user) session() map[string]interface{} {
	// The real backend returns the numeric database id.
	return map[string]interface{}{"user_id": u.id, "email": u.email, "role": u.role}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || c.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	s.mu.Lock()
	u, ok := s.users[c.Email]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if u.password != c.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, u.session())
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[c.Email]; exists {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if c.Role == "" {
		c.Role = api.RoleStudent
	}
	u := s.addUserLocked(c.Email, c.Password, c.Role)
	body := u.session()
	body["message"] = "User registered successfully"
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	threads := make([]api.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, api.Thread{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt})
	}
	s.mu.Unlock()

	sort.Slice(threads, func(i, j int) bool { return threads[i].UpdatedAt > threads[j].UpdatedAt })
	writeJSON(w, http.StatusOK, map[string]interface{}{"threads": threads})
}

// storedMessage is the on-disk shape, which uses role instead of type.
type storedMessage struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	s.mu.Lock()
	t, ok := s.threads[id]
	var msgs []storedMessage
	if ok {
		for _, m := range t.Messages {
			msgs = append(msgs, storedMessage{ID: m.ID, Role: m.Type, Content: m.Content, Timestamp: m.Timestamp})
		}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chat": map[string]interface{}{
			"id": t.ID, "title": t.Title, "messages": msgs,
			"created_at": t.CreatedAt, "updated_at": t.UpdatedAt,
		},
	})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	s.mu.Lock()
	_, ok := s.threads[id]
	delete(s.threads, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Chat not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query, chatID string
	// Like the real backend, a multipart chat_id field that is present but
	// empty is used as the thread id instead of starting a new thread.
	keepEmptyID := false

	if isMultipart(r) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		query = r.FormValue("query")
		_, keepEmptyID = r.MultipartForm.Value["chat_id"]
		chatID = r.FormValue("chat_id")
	} else {
		var body struct {
			Query  string  `json:"query"`
			ChatID *string `json:"chat_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Content-Type must be application/json or multipart/form-data")
			return
		}
		query = body.Query
		if body.ChatID != nil {
			chatID = *body.ChatID
		}
	}

	if query == "" {
		writeError(w, http.StatusBadRequest, "'query' must be a non-empty string")
		return
	}

	answer := s.Answer(query)

	s.mu.Lock()
	if chatID == "" && !keepEmptyID {
		chatID = uuid.NewString()
	}
	t, ok := s.threads[chatID]
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if !ok {
		t = &api.ThreadDetail{ID: chatID, Title: "New Chat", CreatedAt: now}
		s.threads[chatID] = t
	}
	if t.Title == "New Chat" {
		t.Title = titleFrom(query)
	}
	t.Messages = append(t.Messages,
		api.Message{ID: uuid.NewString(), Type: api.TypeUser, Content: query, Timestamp: now},
		api.Message{ID: uuid.NewString(), Type: api.TypeAssistant, Content: answer, Timestamp: now},
	)
	t.UpdatedAt = now
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query": query, "k": 50, "response": answer, "chat_id": chatID,
	})
}

func titleFrom(q string) string {
	r := []rune(q)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return q
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}
	folderID := r.FormValue("folder_id")

	var uploaded []api.File
	for i := 0; ; i++ {
		fhs := r.MultipartForm.File[fmt.Sprintf("file_%d", i)]
		if len(fhs) == 0 {
			break
		}
		fh := fhs[0]
		id := uuid.NewString()
		uploaded = append(uploaded, api.File{
			FileID:       id,
			FileName:     id + "_" + fh.Filename,
			OriginalName: fh.Filename,
			FileSize:     fh.Size,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}
	if len(uploaded) == 0 {
		writeError(w, http.StatusBadRequest, "No files provided")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if folderID != "" {
		idx := -1
		for i, f := range s.folders[userID] {
			if f.FolderID == folderID {
				idx = i
			}
		}
		if idx < 0 {
			writeError(w, http.StatusNotFound, "Folder not found")
			return
		}
		s.folderFiles[folderID] = append(s.folderFiles[folderID], uploaded...)
		s.folders[userID][idx].FileCount += len(uploaded)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": fmt.Sprintf("Successfully uploaded %d files to folder", len(uploaded)),
			"files":   uploaded,
		})
		return
	}

	s.files[userID] = append(s.files[userID], uploaded...)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Successfully uploaded %d files", len(uploaded)),
		"files":   uploaded,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.mu.Lock()
	files := append([]api.File{}, s.files[userID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files, "user_id": userID})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	userID, fileID := chi.URLParam(r, "userID"), chi.URLParam(r, "fileID")
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.files[userID]
	for i, f := range files {
		if f.FileID == fileID {
			s.files[userID] = append(files[:i:i], files[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "File not found")
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.mu.Lock()
	folders := append([]api.Folder{}, s.folders[userID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"folders": folders})
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		FolderName string `json:"folder_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FolderName == "" {
		writeError(w, http.StatusBadRequest, "Folder name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders[userID] {
		if f.FolderName == body.FolderName {
			writeError(w, http.StatusBadRequest, "Folder name already exists")
			return
		}
	}
	f := s.addFolderLocked(userID, body.FolderName)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Folder created successfully", "folder": f})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, folderID := chi.URLParam(r, "userID"), chi.URLParam(r, "folderID")
	s.mu.Lock()
	defer s.mu.Unlock()
	folders := s.folders[userID]
	for i, f := range folders {
		if f.FolderID == folderID {
			s.folders[userID] = append(folders[:i:i], folders[i+1:]...)
			delete(s.folderFiles, folderID)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Folder deleted successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Folder not found")
}

func (s *Server) handleFolderFiles(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	s.mu.Lock()
	files := append([]api.File{}, s.folderFiles[folderID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
