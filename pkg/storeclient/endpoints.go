// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package storeclient

import "context"

// FolderRef identifies a folder returned by a list or create call.
type FolderRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileRef identifies a file returned by a list call, including the
// timestamp the update engine diffs against.
type FileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ExtractedAt string `json:"extracted_at"`
}

// EntityRef identifies an entity returned by a list call.
type EntityRef struct {
	ID string `json:"id"`
}

// RootInfo is the full root record returned by getRootById.
type RootInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ExtractedAt string `json:"extracted_at"`
}

// CreateRoot posts {name} to createRoot and returns the new root's id.
func (c *Client) CreateRoot(ctx context.Context, name string) (string, error) {
	var resp struct {
		Root struct {
			ID string `json:"id"`
		} `json:"root"`
	}
	if err := c.post(ctx, "createRoot", map[string]any{"name": name}, &resp); err != nil {
		return "", err
	}
	if resp.Root.ID == "" {
		return "", &MissingFieldError{Endpoint: "createRoot", Field: "root.id"}
	}
	return resp.Root.ID, nil
}

// CreateSuperFolder posts {name, root_id} to createSuperFolder.
func (c *Client) CreateSuperFolder(ctx context.Context, name, rootID string) (string, error) {
	var resp struct {
		Folder struct {
			ID string `json:"id"`
		} `json:"folder"`
	}
	if err := c.post(ctx, "createSuperFolder", map[string]any{"name": name, "root_id": rootID}, &resp); err != nil {
		return "", err
	}
	if resp.Folder.ID == "" {
		return "", &MissingFieldError{Endpoint: "createSuperFolder", Field: "folder.id"}
	}
	return resp.Folder.ID, nil
}

// CreateSubFolder posts {name, folder_id} to createSubFolder.
func (c *Client) CreateSubFolder(ctx context.Context, name, folderID string) (string, error) {
	var resp struct {
		Subfolder struct {
			ID string `json:"id"`
		} `json:"subfolder"`
	}
	if err := c.post(ctx, "createSubFolder", map[string]any{"name": name, "folder_id": folderID}, &resp); err != nil {
		return "", err
	}
	if resp.Subfolder.ID == "" {
		return "", &MissingFieldError{Endpoint: "createSubFolder", Field: "subfolder.id"}
	}
	return resp.Subfolder.ID, nil
}

// CreateSuperFile posts {name, extension, root_id, text} to createSuperFile.
func (c *Client) CreateSuperFile(ctx context.Context, name, extension, rootID, text string) (string, error) {
	var resp struct {
		File struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	body := map[string]any{"name": name, "extension": extension, "root_id": rootID, "text": text}
	if err := c.post(ctx, "createSuperFile", body, &resp); err != nil {
		return "", err
	}
	if resp.File.ID == "" {
		return "", &MissingFieldError{Endpoint: "createSuperFile", Field: "file.id"}
	}
	return resp.File.ID, nil
}

// CreateFile posts {name, extension, folder_id, text} to createFile.
func (c *Client) CreateFile(ctx context.Context, name, extension, folderID, text string) (string, error) {
	var resp struct {
		File struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	body := map[string]any{"name": name, "extension": extension, "folder_id": folderID, "text": text}
	if err := c.post(ctx, "createFile", body, &resp); err != nil {
		return "", err
	}
	if resp.File.ID == "" {
		return "", &MissingFieldError{Endpoint: "createFile", Field: "file.id"}
	}
	return resp.File.ID, nil
}

// EntityParams carries the fields common to createSuperEntity/createSubEntity.
type EntityParams struct {
	EntityType string
	Text       string
	StartByte  int
	EndByte    int
	Order      int
}

// CreateSuperEntity posts {file_id, entity_type, text, start_byte, end_byte, order}.
func (c *Client) CreateSuperEntity(ctx context.Context, fileID string, p EntityParams) (string, error) {
	var resp struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	body := map[string]any{
		"file_id": fileID, "entity_type": p.EntityType, "text": p.Text,
		"start_byte": p.StartByte, "end_byte": p.EndByte, "order": p.Order,
	}
	if err := c.post(ctx, "createSuperEntity", body, &resp); err != nil {
		return "", err
	}
	if resp.Entity.ID == "" {
		return "", &MissingFieldError{Endpoint: "createSuperEntity", Field: "entity.id"}
	}
	return resp.Entity.ID, nil
}

// CreateSubEntity posts {entity_id, entity_type, text, start_byte, end_byte, order}.
func (c *Client) CreateSubEntity(ctx context.Context, parentEntityID string, p EntityParams) (string, error) {
	var resp struct {
		Entity struct {
			ID string `json:"id"`
		} `json:"entity"`
	}
	body := map[string]any{
		"entity_id": parentEntityID, "entity_type": p.EntityType, "text": p.Text,
		"start_byte": p.StartByte, "end_byte": p.EndByte, "order": p.Order,
	}
	if err := c.post(ctx, "createSubEntity", body, &resp); err != nil {
		return "", err
	}
	if resp.Entity.ID == "" {
		return "", &MissingFieldError{Endpoint: "createSubEntity", Field: "entity.id"}
	}
	return resp.Entity.ID, nil
}

// EmbedSuperEntity posts {entity_id, vector} to embedSuperEntity.
func (c *Client) EmbedSuperEntity(ctx context.Context, entityID string, vector []float64) error {
	return c.post(ctx, "embedSuperEntity", map[string]any{"entity_id": entityID, "vector": vector}, nil)
}

// UpdateFile posts {file_id, text, extracted_at} to updateFile.
func (c *Client) UpdateFile(ctx context.Context, fileID, text, extractedAt string) error {
	body := map[string]any{"file_id": fileID, "text": text}
	if extractedAt != "" {
		body["extracted_at"] = extractedAt
	}
	return c.post(ctx, "updateFile", body, nil)
}

// GetRootByID posts {root_id} to getRootById and returns the root record.
func (c *Client) GetRootByID(ctx context.Context, rootID string) (*RootInfo, error) {
	var resp struct {
		Root RootInfo `json:"root"`
	}
	if err := c.post(ctx, "getRootById", map[string]any{"root_id": rootID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Root, nil
}

// GetRootFolders posts {root_id} to getRootFolders.
func (c *Client) GetRootFolders(ctx context.Context, rootID string) ([]FolderRef, error) {
	var resp struct {
		Folders []FolderRef `json:"folders"`
	}
	if err := c.post(ctx, "getRootFolders", map[string]any{"root_id": rootID}, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

// GetSubFolders posts {folder_id} to getSubFolders.
func (c *Client) GetSubFolders(ctx context.Context, folderID string) ([]FolderRef, error) {
	var resp struct {
		Subfolders []FolderRef `json:"subfolders"`
	}
	if err := c.post(ctx, "getSubFolders", map[string]any{"folder_id": folderID}, &resp); err != nil {
		return nil, err
	}
	return resp.Subfolders, nil
}

// GetRootFiles posts {root_id} to getRootFiles.
func (c *Client) GetRootFiles(ctx context.Context, rootID string) ([]FileRef, error) {
	var resp struct {
		Files []FileRef `json:"files"`
	}
	if err := c.post(ctx, "getRootFiles", map[string]any{"root_id": rootID}, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// GetFolderFiles posts {folder_id} to getFolderFiles.
func (c *Client) GetFolderFiles(ctx context.Context, folderID string) ([]FileRef, error) {
	var resp struct {
		Files []FileRef `json:"files"`
	}
	if err := c.post(ctx, "getFolderFiles", map[string]any{"folder_id": folderID}, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// GetFileEntities posts {file_id} to getFileEntities.
func (c *Client) GetFileEntities(ctx context.Context, fileID string) ([]EntityRef, error) {
	var resp struct {
		Entities []EntityRef `json:"entities"`
	}
	if err := c.post(ctx, "getFileEntities", map[string]any{"file_id": fileID}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// GetSubEntities posts {entity_id} to getSubEntities.
func (c *Client) GetSubEntities(ctx context.Context, entityID string) ([]EntityRef, error) {
	var resp struct {
		Entities []EntityRef `json:"entities"`
	}
	if err := c.post(ctx, "getSubEntities", map[string]any{"entity_id": entityID}, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// DeleteFolder posts {folder_id} to deleteFolder.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	return c.post(ctx, "deleteFolder", map[string]any{"folder_id": folderID}, nil)
}

// DeleteFile posts {file_id} to deleteFile.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.post(ctx, "deleteFile", map[string]any{"file_id": fileID}, nil)
}

// DeleteSuperEntity posts {entity_id} to deleteSuperEntity.
func (c *Client) DeleteSuperEntity(ctx context.Context, entityID string) error {
	return c.post(ctx, "deleteSuperEntity", map[string]any{"entity_id": entityID}, nil)
}

// DeleteSubEntity posts {entity_id} to deleteSubEntity.
func (c *Client) DeleteSubEntity(ctx context.Context, entityID string) error {
	return c.post(ctx, "deleteSubEntity", map[string]any{"entity_id": entityID}, nil)
}
