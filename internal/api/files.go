// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// Files lists the user's uploaded files.
func (c *Client) Files(ctx context.Context, userID string) ([]File, error) {
	var out struct {
		Files []File `json:"files"`
	}
	if err := c.getJSON(ctx, pathf("/api/file/get_files/%s", userID), &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// Upload sends files as file_0..file_N. A non-empty folderID targets that
// folder instead of the general store.
func (c *Client) Upload(ctx context.Context, userID, folderID string, files []Attachment) (UploadResult, error) {
	var fields []formField
	if folderID != "" {
		fields = append(fields, formField{"folder_id", folderID})
	}
	body, contentType, err := buildMultipart(fields, files)
	if err != nil {
		return UploadResult{}, err
	}

	var out UploadResult
	err = c.do(ctx, http.MethodPost, pathf("/api/file/upload/%s", userID), body, contentType, &out)
	return out, err
}

// DeleteFile removes one file.
func (c *Client) DeleteFile(ctx context.Context, userID, fileID string) error {
	return c.delete(ctx, pathf("/api/file/delete_file/%s/%s", userID, fileID))
}
