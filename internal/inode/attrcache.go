package inode

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rcosdp/rdmfs/internal/remote"
)

// Refresh reloads a Folder or File inode's attributes from its
// parent's live remote children when force, or the entity's timer is
// stale or cleared (spec.md §4.3). A NewFile that has never been
// invalidated short-circuits immediately — there is nothing to fetch.
//
// Concurrent Refresh calls for the same entity (go-fuse dispatches
// requests from a goroutine pool, so two Getattr calls can race in)
// are collapsed through singleflight to one remote round trip, which
// is what the spec's single-task-at-a-time scheduling model assumes.
func (r *Registry) Refresh(ctx context.Context, e *Entity, force bool) error {
	r.mu.Lock()
	need := e.needsAttrRefresh(force, r.attrTTL)
	r.mu.Unlock()
	if !need {
		return nil
	}

	_, err, _ := r.refreshGroup.Do(strconv.FormatUint(e.id, 10), func() (any, error) {
		return nil, r.doRefresh(ctx, e)
	})
	return err
}

func (r *Registry) doRefresh(ctx context.Context, e *Entity) error {
	r.mu.Lock()
	parentID := e.parentID
	storageID := e.storageID
	lookupName := e.name
	if e.updatedName != "" {
		lookupName = e.updatedName
	}
	targetPath := e.path
	r.mu.Unlock()

	parent, err := r.Get(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return &NotFoundError{Path: targetPath}
	}
	storage, err := r.Get(ctx, storageID)
	if err != nil {
		return err
	}
	if storage == nil {
		return &NotFoundError{Path: targetPath}
	}

	// Look up by current name first; fall back to canonical-path match
	// to survive renames observed externally (spec.md §4.3).
	var byName, byPath *remote.ObjectSummary
	pager := r.remote.ListObjectChildren(ctx, parent.ChildrenURL())
	for {
		page, perr := pager.Next(ctx)
		if perr != nil {
			return &TransportError{Err: perr}
		}
		if page == nil {
			break
		}
		for i := range page {
			obj := page[i]
			if byName == nil && obj.Name == lookupName {
				o := obj
				byName = &o
			}
			candidatePath := storage.path + strings.TrimPrefix(obj.Path, "/")
			if byPath == nil && candidatePath == targetPath {
				o := obj
				byPath = &o
			}
		}
		if byName != nil {
			break
		}
	}

	child := byName
	if child == nil {
		child = byPath
	}
	if child == nil {
		return &NotFoundError{Path: targetPath}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wantFolder := e.kind == KindFolder
	gotFolder := child.Kind == remote.ObjectKindFolder
	if wantFolder != gotFolder {
		// Type confusion is a hard error; the cached attributes are
		// left untouched (spec.md §8 invariant 4).
		if gotFolder {
			return &IsADirectoryError{Path: targetPath}
		}
		return &NotADirectoryError{Path: targetPath}
	}

	e.remotePath = child.Path
	e.name = child.Name
	e.dateCreated = child.DateCreated
	e.dateModified = child.DateModified
	e.downloadURL = child.DownloadURL
	e.uploadURL = child.UploadURL
	e.selfURL = child.SelfURL
	e.childrenURL = child.ChildrenURL
	if child.Size != "" {
		e.size, e.hasSize = child.Size, true
	} else {
		e.size, e.hasSize = "", false
	}
	e.updatedName = ""
	e.lastLoaded = time.Now()
	e.lastLoadedValid = true
	e.isNewFile = false
	return nil
}
