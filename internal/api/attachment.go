// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Attachment is a file selected for sending. Data, when set, is used
// instead of reading Path.
type Attachment struct {
	Name string
	Path string
	Data []byte
}

// FileAttachment returns an attachment for a file on disk.
func FileAttachment(path string) Attachment {
	return Attachment{Name: filepath.Base(path), Path: path}
}

// DisplayName is the name sent to the backend.
func (a Attachment) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return filepath.Base(a.Path)
}

func (a Attachment) open() (io.ReadCloser, error) {
	if a.Data != nil {
		return io.NopCloser(bytes.NewReader(a.Data)), nil
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return f, nil
}

// formField is a plain multipart value. Repeated names are allowed.
type formField struct {
	name  string
	value string
}

// buildMultipart encodes fields followed by file_0..file_N parts.
func buildMultipart(fields []formField, files []Attachment) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for i, att := range files {
		part, err := w.CreateFormFile(fmt.Sprintf("file_%d", i), att.DisplayName())
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		r, err := att.open()
		if err != nil {
			return nil, "", err
		}
		_, err = io.Copy(part, r)
		r.Close()
		if err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", att.DisplayName(), err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
