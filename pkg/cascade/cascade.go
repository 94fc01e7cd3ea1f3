// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cascade is the cascading deleter (C9): depth-first deletion of
// entities, files, and folders through the store's delete* endpoints.
// Every step is best-effort — errors are logged, never propagated, so one
// failed branch never stops its siblings from being cleaned up (§4.9).
package cascade

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kraklabs/graphdex/pkg/storeclient"
)

// Deleter walks the store's ownership edges and removes a subtree.
type Deleter struct {
	Store  *storeclient.Client
	Logger *slog.Logger
}

// New constructs a Deleter. A nil logger falls back to slog.Default().
func New(store *storeclient.Client, logger *slog.Logger) *Deleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deleter{Store: store, Logger: logger}
}

// DeleteFolder recursively deletes every subfolder and file under
// folderID, then deletes folderID itself (§4.9 "delete_folder").
func (d *Deleter) DeleteFolder(ctx context.Context, folderID string) {
	subfolders, err := d.Store.GetSubFolders(ctx, folderID)
	if err != nil {
		d.Logger.Warn("cascade.folder.list_subfolders_error", "folder_id", folderID, "err", err)
	}
	files, err := d.Store.GetFolderFiles(ctx, folderID)
	if err != nil {
		d.Logger.Warn("cascade.folder.list_files_error", "folder_id", folderID, "err", err)
	}

	var wg sync.WaitGroup
	for _, sf := range subfolders {
		sf := sf
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DeleteFolder(ctx, sf.ID)
		}()
	}
	for _, f := range files {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DeleteFile(ctx, f.ID)
		}()
	}
	wg.Wait()

	if err := d.Store.DeleteFolder(ctx, folderID); err != nil {
		d.Logger.Warn("cascade.folder.delete_error", "folder_id", folderID, "err", err)
	}
}

// DeleteFile deletes every entity owned by fileID and fileID itself,
// concurrently (§4.9 "delete_files": "POST deleteFile and delete all its
// entities").
func (d *Deleter) DeleteFile(ctx context.Context, fileID string) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.DeleteFileEntities(ctx, fileID)
	}()
	go func() {
		defer wg.Done()
		if err := d.Store.DeleteFile(ctx, fileID); err != nil {
			d.Logger.Warn("cascade.file.delete_error", "file_id", fileID, "err", err)
		}
	}()
	wg.Wait()
}

// DeleteFileEntities deletes every entity owned (directly or indirectly)
// by fileID without deleting fileID itself. Used by the update engine
// before re-ingesting a changed file (§4.8 "update_file").
func (d *Deleter) DeleteFileEntities(ctx context.Context, fileID string) {
	topLevel, err := d.Store.GetFileEntities(ctx, fileID)
	if err != nil {
		d.Logger.Warn("cascade.entities.list_error", "file_id", fileID, "err", err)
		return
	}

	var wg sync.WaitGroup
	for _, ent := range topLevel {
		ent := ent
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.deleteEntityTree(ctx, ent.ID, true)
		}()
	}
	wg.Wait()
}

// deleteEntityTree deletes id's descendant sub-entities first, then id
// itself (§4.9 "delete_entities": "fetch children, recurse as
// sub-entities"). isSuper selects the deleteSuperEntity/deleteSubEntity
// endpoint for id itself.
func (d *Deleter) deleteEntityTree(ctx context.Context, id string, isSuper bool) {
	children, err := d.Store.GetSubEntities(ctx, id)
	if err != nil {
		d.Logger.Warn("cascade.entities.list_sub_error", "entity_id", id, "err", err)
	} else {
		var wg sync.WaitGroup
		for _, c := range children {
			c := c
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.deleteEntityTree(ctx, c.ID, false)
			}()
		}
		wg.Wait()
	}

	var delErr error
	if isSuper {
		delErr = d.Store.DeleteSuperEntity(ctx, id)
	} else {
		delErr = d.Store.DeleteSubEntity(ctx, id)
	}
	if delErr != nil {
		d.Logger.Warn("cascade.entities.delete_error", "entity_id", id, "err", delErr)
	}
}
