// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package files

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ragchat-tui/internal/api"
	"github.com/jeranaias/ragchat-tui/internal/apitest"
	"github.com/jeranaias/ragchat-tui/internal/events"
	"github.com/jeranaias/ragchat-tui/internal/session"
)

type fixedUser string

func (u fixedUser) UserID() (string, error) {
	if u == "" {
		return "", session.ErrNotLoggedIn
	}
	return string(u), nil
}

func attachments(n int) []api.Attachment {
	out := make([]api.Attachment, n)
	for i := range out {
		out[i] = api.Attachment{Name: string(rune('a'+i)) + ".txt", Data: []byte("x")}
	}
	return out
}

func TestList_ReadThroughCache(t *testing.T) {
	srv := apitest.New(t)
	m := NewManager(api.New(srv.URL), fixedUser("1"), events.New())
	defer m.Close()

	_, err := m.List(context.Background())
	require.NoError(t, err)
	_, err = m.List(context.Background())
	require.NoError(t, err)

	assert.Len(t, srv.RequestsTo(http.MethodGet, "/api/file/get_files/1"), 1, "second list served from cache")
}

func TestUpload_InvalidatesEveryManager(t *testing.T) {
	srv := apitest.New(t)
	client := api.New(srv.URL)
	bus := events.New()

	uploader := NewManager(client, fixedUser("1"), bus)
	viewer := NewManager(client, fixedUser("1"), bus)
	defer uploader.Close()
	defer viewer.Close()

	files, err := viewer.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = uploader.Upload(context.Background(), attachments(2))
	require.NoError(t, err)

	files, err = viewer.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 2, "viewer refetched after the broadcast")
}

func TestUpload_Limits(t *testing.T) {
	srv := apitest.New(t)
	m := NewManager(api.New(srv.URL), fixedUser("1"), nil)

	_, err := m.Upload(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrNoFiles))

	_, err = m.Upload(context.Background(), attachments(6))
	assert.True(t, errors.Is(err, ErrTooManyFiles))
	assert.Empty(t, srv.Requests())

	_, err = m.Upload(context.Background(), attachments(5))
	assert.NoError(t, err)
}

func TestUpload_RequiresSession(t *testing.T) {
	srv := apitest.New(t)
	m := NewManager(api.New(srv.URL), fixedUser(""), nil)

	_, err := m.Upload(context.Background(), attachments(1))
	assert.True(t, errors.Is(err, session.ErrNotLoggedIn))
	assert.Empty(t, srv.Requests())
}

func TestUpload_FailureKeepsList(t *testing.T) {
	srv := apitest.New(t)
	m := NewManager(api.New(srv.URL), fixedUser("1"), events.New())
	defer m.Close()

	_, err := m.Upload(context.Background(), attachments(1))
	require.NoError(t, err)
	before, err := m.List(context.Background())
	require.NoError(t, err)

	srv.Fail(http.MethodPost, "/api/file/upload/1", http.StatusInternalServerError, "Upload failed: disk full")
	_, err = m.Upload(context.Background(), attachments(1))
	assert.Equal(t, "Upload failed: disk full", api.ServerMessage(err, ""))

	cached, valid := m.Cached()
	assert.True(t, valid)
	assert.Equal(t, before, cached)
}

func TestDelete_Refetches(t *testing.T) {
	srv := apitest.New(t)
	m := NewManager(api.New(srv.URL), fixedUser("1"), nil)

	_, err := m.Upload(context.Background(), attachments(2))
	require.NoError(t, err)
	files, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	left, err := m.Delete(context.Background(), files[0].FileID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, files[1].FileID, left[0].FileID)
}

func TestDownload_NotImplemented(t *testing.T) {
	m := NewManager(nil, fixedUser("1"), nil)
	assert.True(t, errors.Is(m.Download(context.Background(), "f"), ErrDownloadNotImplemented))
}
