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

// Package ingest is the ingestion engine (C6): a single-level recursive
// directory walker that creates folder/file/entity nodes in the store and
// feeds chunk embedding jobs to the dispatcher. It also exposes the
// entity-ingestion steps the update engine (C8) reuses for re-ingesting a
// changed file without re-walking its parent directory.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/kraklabs/graphdex/pkg/chunk"
	"github.com/kraklabs/graphdex/pkg/dispatcher"
	"github.com/kraklabs/graphdex/pkg/indextypes"
	"github.com/kraklabs/graphdex/pkg/lang"
	"github.com/kraklabs/graphdex/pkg/storeclient"
	"github.com/kraklabs/graphdex/pkg/syntax"
)

// defaultIgnore is the default ignore set applied to every directory
// level (§4.6).
var defaultIgnore = map[string]bool{".git": true}

// Engine walks a filesystem tree and populates the store.
type Engine struct {
	Store      *storeclient.Client
	Dispatcher *dispatcher.Dispatcher
	Registry   *syntax.Registry
	IndexTypes *indextypes.IndexTypesConfig
	FileTypes  *indextypes.FileTypesConfig
	Logger     *slog.Logger
}

// New constructs an Engine from its dependencies. A nil Logger falls back
// to slog.Default().
func New(store *storeclient.Client, disp *dispatcher.Dispatcher, reg *syntax.Registry, indexTypes *indextypes.IndexTypesConfig, fileTypes *indextypes.FileTypesConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Store:      store,
		Dispatcher: disp,
		Registry:   reg,
		IndexTypes: indexTypes,
		FileTypes:  fileTypes,
		Logger:     logger,
	}
}

// Ingest creates the root node for rootPath and walks its entire tree.
// Root creation failure is fatal (§7); failures walking the tree bubble
// up from the first top-level folder/file create that fails.
func (e *Engine) Ingest(ctx context.Context, rootPath string) (string, error) {
	name := filepath.Base(filepath.Clean(rootPath))

	rootID, err := e.Store.CreateRoot(ctx, name)
	if err != nil {
		return "", fmt.Errorf("ingest: create root %q: %w", name, err)
	}

	if err := e.walkDir(ctx, rootPath, rootID, true); err != nil {
		return rootID, err
	}
	return rootID, nil
}

// walkDir processes every entry of dirPath concurrently (§5): folders
// recurse via ingestFolder, files via ingestFile. isSuperParent is true
// only when dirPath is the root itself, so its entries are owned by the
// root.
func (e *Engine) walkDir(ctx context.Context, dirPath, parentID string, isSuperParent bool) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		e.Logger.Warn("ingest.walk.read_dir_error", "path", dirPath, "err", err)
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(entries))

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
				e.ingestFolder(ctx, path, parentID, isSuperParent, errCh)
			} else {
				e.ingestFile(ctx, path, parentID, isSuperParent, errCh)
			}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// ingestFolder creates the folder node (super if its parent is the root,
// sub otherwise) and recurses into it. Creation failure propagates
// (§9 open question: top-level folder/file creation propagates).
func (e *Engine) ingestFolder(ctx context.Context, path, parentID string, isSuperParent bool, errCh chan<- error) {
	if err := e.PopulateFolder(ctx, path, parentID, isSuperParent); err != nil {
		e.Logger.Error("ingest.folder.create_error", "path", path, "err", err)
		errCh <- err
	}
}

// PopulateFolder creates one folder node under parentID and walks its
// entire subtree. Exported so the update engine can delegate here for a
// directory absent from the index (§4.8 step 3, "delegate to C6
// populate") without re-walking the directory that contains it.
func (e *Engine) PopulateFolder(ctx context.Context, path, parentID string, isSuperParent bool) error {
	name := filepath.Base(path)

	var folderID string
	var err error
	if isSuperParent {
		folderID, err = e.Store.CreateSuperFolder(ctx, name, parentID)
	} else {
		folderID, err = e.Store.CreateSubFolder(ctx, name, parentID)
	}
	if err != nil {
		return fmt.Errorf("ingest: create folder %q: %w", path, err)
	}

	return e.walkDir(ctx, path, folderID, false)
}

// ingestFile reads and ingests one file (§4.6 "File ingestion"). A
// filesystem read error is logged and skipped, not fatal.
func (e *Engine) ingestFile(ctx context.Context, path, parentID string, isSuperParent bool, errCh chan<- error) {
	if err := e.ProcessFile(ctx, path, parentID, isSuperParent); err != nil {
		e.Logger.Error("ingest.file.create_error", "path", path, "err", err)
		errCh <- err
	}
}

// ProcessFile reads path, creates its file node, and ingests its body.
// Exported so the update engine can delegate here for a file absent from
// the index (§4.8 step 3, "delegate to C6 process_file"). A filesystem
// read error is logged and treated as a non-fatal skip, matching
// ingestFile; a body ingestion error is logged as well. Only a failed
// file create is returned as an error.
func (e *Engine) ProcessFile(ctx context.Context, path, parentID string, isSuperParent bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		e.Logger.Warn("ingest.file.read_error", "path", path, "err", err)
		return nil
	}

	name := filepath.Base(path)
	extension := lang.TrimDot(filepath.Ext(name))

	fileID, err := e.createFile(ctx, name, extension, parentID, string(content), isSuperParent)
	if err != nil {
		return fmt.Errorf("ingest: create file %q: %w", path, err)
	}

	if err := e.ingestFileBody(ctx, fileID, extension, content); err != nil {
		e.Logger.Warn("ingest.file.body_error", "path", path, "err", err)
	}
	return nil
}

// createFile posts createSuperFile or createFile depending on whether the
// file's parent is the root.
func (e *Engine) createFile(ctx context.Context, name, extension, parentID, text string, isSuperParent bool) (string, error) {
	if isSuperParent {
		return e.Store.CreateSuperFile(ctx, name, extension, parentID, text)
	}
	return e.Store.CreateFile(ctx, name, extension, parentID, text)
}

// ReingestFile re-reads path, posts updateFile with the new text and
// extraction timestamp, and re-runs entity ingestion under the existing
// fileID (§4.8 "update_file"). The caller is responsible for first
// cascading-deleting fileID's existing entities (C9); re-ingestion here
// is total, never a within-file diff.
func (e *Engine) ReingestFile(ctx context.Context, fileID, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ingest: reread %q: %w", path, err)
	}

	extension := lang.TrimDot(filepath.Ext(path))
	extractedAt := time.Now().UTC().Format(time.RFC3339)

	if err := e.Store.UpdateFile(ctx, fileID, string(content), extractedAt); err != nil {
		return fmt.Errorf("ingest: update file %q: %w", path, err)
	}

	return e.ingestFileBody(ctx, fileID, extension, content)
}

// ingestFileBody dispatches to the supported (Tree-sitter) or unsupported
// (chunked text) path based on the language dispatcher and file_types.json
// (§4.6 steps 3-4).
func (e *Engine) ingestFileBody(ctx context.Context, fileID, extension string, content []byte) error {
	grammar, supported := lang.For(extension)
	if supported {
		return e.ingestSupportedFile(ctx, fileID, extension, grammar, content)
	}
	return e.ingestUnsupportedFile(ctx, fileID, extension, content)
}

// ingestSupportedFile does nothing unless the extension is in
// file_types.json's supported set; otherwise it parses content and
// builds and ingests the top-level entity tree (§4.6 step 3).
func (e *Engine) ingestSupportedFile(ctx context.Context, fileID, extension string, grammar lang.Grammar, content []byte) error {
	if !e.FileTypes.IsSupported(extension) {
		return nil
	}

	tree, err := e.Registry.Parse(grammar, content)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	return e.IngestParsedEntities(ctx, fileID, tree, content, extension)
}

// IngestParsedEntities builds the top-level OwnedNode list from tree and
// processes each with a monotonic, pre-assigned order (§4.6 step 3e, §5
// "assigned by a monotonic counter before the subtask is spawned").
// Exported so the update engine can re-run entity ingestion after
// updateFile without re-walking the parent directory.
func (e *Engine) IngestParsedEntities(ctx context.Context, fileID string, tree *tree_sitter.Tree, content []byte, extension string) error {
	topLevel := syntax.TopLevelChildren(tree, content)
	return e.ingestEntityList(ctx, topLevel, fileID, true, extension)
}

// ingestUnsupportedFile chunks content and creates one "chunk" super
// entity per piece if the extension is in file_types.json's unsupported
// set (§4.6 step 4).
func (e *Engine) ingestUnsupportedFile(ctx context.Context, fileID, extension string, content []byte) error {
	if !e.FileTypes.IsUnsupported(extension) {
		return nil
	}
	return e.IngestChunkedEntities(ctx, fileID, string(content))
}

// IngestChunkedEntities splits text and creates one "chunk" super entity
// per piece, enqueuing an embedding job for each. Exported for reuse by
// the update engine's unsupported-extension re-ingestion path.
func (e *Engine) IngestChunkedEntities(ctx context.Context, fileID, text string) error {
	chunks := chunk.Split(text)

	var wg sync.WaitGroup
	for i, c := range chunks {
		i, c := i, c
		order := i + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			entityID, err := e.Store.CreateSuperEntity(ctx, fileID, storeclient.EntityParams{
				EntityType: "chunk",
				Text:       c,
				StartByte:  0,
				EndByte:    len(c),
				Order:      order,
			})
			if err != nil {
				e.Logger.Warn("ingest.chunk.create_error", "file_id", fileID, "order", order, "err", err)
				return
			}
			e.Dispatcher.Enqueue(dispatcher.EmbeddingJob{ChunkText: c, EntityID: entityID})
		}()
	}
	wg.Wait()
	return nil
}

// ingestEntityList assigns a fresh monotonic order to each node in nodes
// (in source order, before any subtask is spawned) and processes them
// concurrently under parentID.
func (e *Engine) ingestEntityList(ctx context.Context, nodes []*syntax.OwnedNode, parentID string, isSuper bool, extension string) error {
	var wg sync.WaitGroup
	for i, node := range nodes {
		order := i + 1
		node := node
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.processEntity(ctx, node, parentID, isSuper, order, extension)
		}()
	}
	wg.Wait()
	return nil
}

// processEntity implements §4.6.1. Entity creation and embedding
// failures are logged and the subtree is skipped (non-fatal, per the §9
// open-question resolution), never propagated to the caller.
func (e *Engine) processEntity(ctx context.Context, node *syntax.OwnedNode, parentID string, isSuper bool, order int, extension string) {
	if extension == "py" && node.Kind == "block" && len(node.Children) > 0 {
		// The Python grammar wraps a function/class body in a content-less
		// "block" node; materialising it would add a spurious, textless
		// entity. Its children take its place directly, starting a fresh
		// sibling counter, under the same parent and is_super context
		// block itself would have used.
		_ = e.ingestEntityList(ctx, node.Children, parentID, isSuper, extension)
		return
	}

	if !e.IndexTypes.Decide(extension, node.Kind) {
		return
	}

	params := storeclient.EntityParams{
		EntityType: node.Kind,
		Text:       node.Text,
		StartByte:  int(node.StartByte),
		EndByte:    int(node.EndByte),
		Order:      order,
	}

	var entityID string
	var err error
	if isSuper {
		entityID, err = e.Store.CreateSuperEntity(ctx, parentID, params)
	} else {
		entityID, err = e.Store.CreateSubEntity(ctx, parentID, params)
	}
	if err != nil {
		e.Logger.Warn("ingest.entity.create_error", "kind", node.Kind, "order", order, "err", err)
		return
	}

	if isSuper {
		for _, c := range chunk.Split(node.Text) {
			if c == "" {
				continue
			}
			e.Dispatcher.Enqueue(dispatcher.EmbeddingJob{ChunkText: c, EntityID: entityID})
		}
	}

	if len(node.Children) > 0 {
		_ = e.ingestEntityList(ctx, node.Children, entityID, false, extension)
	}
}
