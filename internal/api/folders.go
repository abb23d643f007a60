// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "context"

// Folders lists the user's smart folders.
func (c *Client) Folders(ctx context.Context, userID string) ([]Folder, error) {
	var out struct {
		Folders []Folder `json:"folders"`
	}
	if err := c.getJSON(ctx, pathf("/api/folders/%s", userID), &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

// CreateFolder creates a folder and returns the stored record.
func (c *Client) CreateFolder(ctx context.Context, userID, name string) (Folder, error) {
	in := struct {
		FolderName string `json:"folder_name"`
	}{name}
	var out struct {
		Folder Folder `json:"folder"`
	}
	if err := c.postJSON(ctx, pathf("/api/folders/%s", userID), in, &out); err != nil {
		return Folder{}, err
	}
	return out.Folder, nil
}

// DeleteFolder removes a folder and its files.
func (c *Client) DeleteFolder(ctx context.Context, userID, folderID string) error {
	return c.delete(ctx, pathf("/api/folders/%s/%s", userID, folderID))
}

// FolderFiles lists the files inside one folder.
func (c *Client) FolderFiles(ctx context.Context, userID, folderID string) ([]File, error) {
	var out struct {
		Files []File `json:"files"`
	}
	if err := c.getJSON(ctx, pathf("/api/folders/%s/%s/files", userID, folderID), &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}
