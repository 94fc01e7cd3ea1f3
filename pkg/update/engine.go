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

// Package update is the update/reconcile engine (C8): a tree-diff between
// the filesystem and the indexed state that delegates new entries to the
// ingestion engine, changed files to its own re-ingestion step, and
// disappeared entries to the cascading deleter (C9).
package update

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kraklabs/graphdex/pkg/cascade"
	"github.com/kraklabs/graphdex/pkg/ingest"
	"github.com/kraklabs/graphdex/pkg/storeclient"
)

// defaultIgnore mirrors the ingestion engine's default ignore set (§4.6)
// so the same entries never surface as spurious adds or removals.
var defaultIgnore = map[string]bool{".git": true}

// Engine reconciles one previously-ingested root against its current
// filesystem state.
type Engine struct {
	Store          *storeclient.Client
	Ingest         *ingest.Engine
	Delete         *cascade.Deleter
	UpdateInterval time.Duration
	Logger         *slog.Logger
}

// New constructs an Engine. A nil logger falls back to slog.Default().
func New(store *storeclient.Client, ingestEngine *ingest.Engine, deleter *cascade.Deleter, updateInterval time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Store:          store,
		Ingest:         ingestEngine,
		Delete:         deleter,
		UpdateInterval: updateInterval,
		Logger:         logger,
	}
}

// RootNameMismatchError reports that the stored root's name no longer
// matches the directory basename being reconciled against it (§4.8 step
// 1, fatal).
type RootNameMismatchError struct {
	Stored     string
	Filesystem string
}

func (e *RootNameMismatchError) Error() string {
	return fmt.Sprintf("update: stored root name %q does not match filesystem basename %q", e.Stored, e.Filesystem)
}

// Update reconciles rootPath against the previously-ingested rootID.
// A root name mismatch is fatal, and so is a failure to fetch the root or
// to list its top-level folders or files. Every failure below the top
// level is logged and the corresponding branch skipped.
func (e *Engine) Update(ctx context.Context, rootPath, rootID string) error {
	name := filepath.Base(filepath.Clean(rootPath))

	root, err := e.Store.GetRootByID(ctx, rootID)
	if err != nil {
		return fmt.Errorf("update: fetch root %q: %w", rootID, err)
	}
	if root.Name != name {
		return &RootNameMismatchError{Stored: root.Name, Filesystem: name}
	}

	return e.reconcileFolder(ctx, rootPath, rootID, true)
}

// reconcileFolder implements §4.8 steps 2-4 for one directory level.
func (e *Engine) reconcileFolder(ctx context.Context, dirPath, parentID string, isSuperParent bool) error {
	folderByName, err := e.indexedFolders(ctx, parentID, isSuperParent)
	if err != nil {
		e.Logger.Error("update.reconcile.list_folders_error", "path", dirPath, "err", err)
		return err
	}
	fileByName, err := e.indexedFiles(ctx, parentID, isSuperParent)
	if err != nil {
		e.Logger.Error("update.reconcile.list_files_error", "path", dirPath, "err", err)
		return err
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		e.Logger.Warn("update.reconcile.read_dir_error", "path", dirPath, "err", err)
		return nil
	}

	seenFolders := make(map[string]bool)
	seenFiles := make(map[string]bool)
	var seenMu sync.Mutex

	var wg sync.WaitGroup
	for _, entry := range entries {
		if defaultIgnore[entry.Name()] {
			continue
		}

		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := filepath.Join(dirPath, entry.Name())

			if entry.IsDir() {
				seenMu.Lock()
				seenFolders[entry.Name()] = true
				seenMu.Unlock()
				e.reconcileDirEntry(ctx, path, entry.Name(), parentID, isSuperParent, folderByName)
				return
			}

			seenMu.Lock()
			seenFiles[entry.Name()] = true
			seenMu.Unlock()
			e.reconcileFileEntry(ctx, path, entry.Name(), parentID, isSuperParent, fileByName)
		}()
	}
	wg.Wait()

	e.deleteVanished(ctx, folderByName, seenFolders, fileByName, seenFiles)
	return nil
}

// reconcileDirEntry handles one directory entry: recurse if it is already
// indexed, otherwise populate it fresh (§4.8 step 3, directory case).
func (e *Engine) reconcileDirEntry(ctx context.Context, path, name, parentID string, isSuperParent bool, folderByName map[string]storeclient.FolderRef) {
	if folder, ok := folderByName[name]; ok {
		if err := e.reconcileFolder(ctx, path, folder.ID, false); err != nil {
			e.Logger.Error("update.reconcile.folder_error", "path", path, "err", err)
		}
		return
	}

	if err := e.Ingest.PopulateFolder(ctx, path, parentID, isSuperParent); err != nil {
		e.Logger.Error("update.reconcile.populate_error", "path", path, "err", err)
	}
}

// reconcileFileEntry handles one file entry: re-ingest if stale,
// no-op if fresh, or process as new (§4.8 step 3, file case).
func (e *Engine) reconcileFileEntry(ctx context.Context, path, name, parentID string, isSuperParent bool, fileByName map[string]storeclient.FileRef) {
	ref, ok := fileByName[name]
	if !ok {
		if err := e.Ingest.ProcessFile(ctx, path, parentID, isSuperParent); err != nil {
			e.Logger.Error("update.reconcile.process_file_error", "path", path, "err", err)
		}
		return
	}

	if !e.isStale(path, ref.ExtractedAt) {
		return
	}

	e.Delete.DeleteFileEntities(ctx, ref.ID)
	if err := e.Ingest.ReingestFile(ctx, ref.ID, path); err != nil {
		e.Logger.Error("update.reconcile.reingest_error", "path", path, "err", err)
	}
}

// isStale reports whether path's filesystem mtime exceeds extractedAt by
// more than the configured update interval. If the mtime is unavailable
// or extractedAt fails to parse, the file is always treated as stale
// (§4.8 step 3, "If mtime is unavailable, always update").
func (e *Engine) isStale(path, extractedAt string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}

	extracted, err := time.Parse(time.RFC3339, extractedAt)
	if err != nil {
		return true
	}

	return info.ModTime().UTC().Sub(extracted.UTC()) > e.UpdateInterval
}

// deleteVanished cascading-deletes any indexed folder or file whose name
// no longer appears on disk (§4.8 step 4).
func (e *Engine) deleteVanished(ctx context.Context, folderByName map[string]storeclient.FolderRef, seenFolders map[string]bool, fileByName map[string]storeclient.FileRef, seenFiles map[string]bool) {
	var wg sync.WaitGroup
	for name, folder := range folderByName {
		if seenFolders[name] {
			continue
		}
		folder := folder
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Delete.DeleteFolder(ctx, folder.ID)
		}()
	}
	for name, file := range fileByName {
		if seenFiles[name] {
			continue
		}
		file := file
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Delete.DeleteFile(ctx, file.ID)
		}()
	}
	wg.Wait()
}

// indexedFolders fetches the name->ref map for parentID's direct
// subfolders, using getRootFolders at the root level and getSubFolders
// below it.
func (e *Engine) indexedFolders(ctx context.Context, parentID string, isSuperParent bool) (map[string]storeclient.FolderRef, error) {
	var folders []storeclient.FolderRef
	var err error
	if isSuperParent {
		folders, err = e.Store.GetRootFolders(ctx, parentID)
	} else {
		folders, err = e.Store.GetSubFolders(ctx, parentID)
	}
	if err != nil {
		return nil, err
	}

	byName := make(map[string]storeclient.FolderRef, len(folders))
	for _, f := range folders {
		byName[f.Name] = f
	}
	return byName, nil
}

// indexedFiles fetches the name->ref map for parentID's direct files,
// using getRootFiles at the root level and getFolderFiles below it.
func (e *Engine) indexedFiles(ctx context.Context, parentID string, isSuperParent bool) (map[string]storeclient.FileRef, error) {
	var files []storeclient.FileRef
	var err error
	if isSuperParent {
		files, err = e.Store.GetRootFiles(ctx, parentID)
	} else {
		files, err = e.Store.GetFolderFiles(ctx, parentID)
	}
	if err != nil {
		return nil, err
	}

	byName := make(map[string]storeclient.FileRef, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}
	return byName, nil
}
