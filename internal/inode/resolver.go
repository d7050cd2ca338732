package inode

import (
	"context"
	"log"
	"sort"

	"github.com/rcosdp/rdmfs/internal/remote"
)

// ChildrenOf returns parent's children, served from the listing cache
// when present and otherwise materialised fresh and cached (spec.md
// §4.2). The result is always a fully-resolved, ordered slice: the
// cache stores finished listings, never partial or lazy ones, so a
// cache replacement is atomic (invariant 5).
func (r *Registry) ChildrenOf(ctx context.Context, parent *Entity) ([]*Entity, error) {
	if cached, ok := r.listing.Get(parent.ID()); ok {
		return cached.Children, nil
	}
	children, err := r.listChildren(ctx, parent)
	if err != nil {
		return nil, err
	}
	r.listing.Set(parent.ID(), children)
	return children, nil
}

func (r *Registry) listChildren(ctx context.Context, parent *Entity) ([]*Entity, error) {
	switch parent.Kind() {
	case KindProjectsRoot:
		return r.materializeNodePager(ctx, parent, r.remote.ListUserNodes(ctx))

	case KindProject:
		return r.listProjectChildren(ctx, parent)

	case KindProjectChildren:
		owner, err := r.ownerOf(ctx, parent)
		if err != nil {
			return nil, err
		}
		return r.materializeNodePager(ctx, parent, r.remote.ListNodeChildren(ctx, owner.RemoteID()))

	case KindProjectLinked:
		owner, err := r.ownerOf(ctx, parent)
		if err != nil {
			return nil, err
		}
		return r.materializeNodePager(ctx, parent, r.remote.ListNodeLinked(ctx, owner.RemoteID()))

	case KindStorage, KindFolder:
		return r.materializeObjectChildren(ctx, parent)

	default:
		return nil, &NotADirectoryError{Path: parent.Path()}
	}
}

func (r *Registry) ownerOf(ctx context.Context, e *Entity) (*Entity, error) {
	ownerID, _ := e.ParentID()
	owner, err := r.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, &NotFoundError{Path: e.Path()}
	}
	return owner, nil
}

// listProjectChildren returns the fixed synthetic entries — attributes
// descriptor, .children, .linked — followed by the project's storages
// in the order the remote reports them (spec.md §4.4).
func (r *Registry) listProjectChildren(ctx context.Context, project *Entity) ([]*Entity, error) {
	attrs, err := r.ResolveProjectAttributes(project, project.Attributes())
	if err != nil {
		return nil, err
	}
	childrenDir, err := r.ResolveProjectChildren(project)
	if err != nil {
		return nil, err
	}
	linkedDir, err := r.ResolveProjectLinked(project)
	if err != nil {
		return nil, err
	}

	storages, err := r.remote.ListStorages(ctx, project.RemoteID())
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	out := []*Entity{attrs, childrenDir, linkedDir}
	for _, s := range storages {
		st, err := r.ResolveStorage(project, s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// materializeNodePager drains pager fully, applies the project-node
// filtering rule (exclude non-"nodes" types, registrations, and blank
// ids), dedups by id, and sorts ascending by id before resolving each
// through the registry (spec.md §4.4).
func (r *Registry) materializeNodePager(ctx context.Context, parent *Entity, pager NodePager) ([]*Entity, error) {
	seen := make(map[string]bool)
	var nodes []remote.NodeSummary
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if page == nil {
			break
		}
		for _, n := range page {
			if n.ID == "" || n.Type != "nodes" || n.Registration {
				continue
			}
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	out := make([]*Entity, 0, len(nodes))
	for _, n := range nodes {
		e, err := r.ResolveProject(parent, n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Registry) materializeObjectChildren(ctx context.Context, parent *Entity) ([]*Entity, error) {
	storageID, _ := parent.StorageID()
	storage, err := r.Get(ctx, storageID)
	if err != nil {
		return nil, err
	}
	if storage == nil {
		return nil, &NotFoundError{Path: parent.Path()}
	}

	pager := r.remote.ListObjectChildren(ctx, parent.ChildrenURL())
	var out []*Entity
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, &TransportError{Err: err}
		}
		if page == nil {
			break
		}
		for _, obj := range page {
			child, err := r.ResolveObject(parent, storage, obj)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
	}
	return out, nil
}

// FindByName implements spec.md §4.4's lookup algorithm: a listing
// cache hit is scanned (refreshing each File/Folder candidate as it
// goes) but a miss there falls through to a fresh listing rather than
// returning not-found; only after both fail does it consult pending
// NewFile placeholders. A plain nil, nil return means "does not
// exist" — not an error.
func (r *Registry) FindByName(ctx context.Context, parent *Entity, name string) (*Entity, error) {
	if cached, ok := r.listing.Get(parent.ID()); ok {
		if found := r.scanForName(ctx, cached.Children, name); found != nil {
			return found, nil
		}
	}

	// Always re-list here: a cached listing that lacked name may predate
	// a write, so it is replaced rather than scanned a second time.
	children, err := r.listChildren(ctx, parent)
	if err != nil {
		return nil, err
	}
	r.listing.Set(parent.ID(), children)
	if found := r.scanForName(ctx, children, name); found != nil {
		return found, nil
	}

	r.mu.Lock()
	pending := r.findNewFileByNameLocked(parent.ID(), name)
	r.mu.Unlock()
	if pending == nil {
		return nil, nil
	}
	if err := r.Refresh(ctx, pending, false); err != nil && !IsNotFound(err) {
		return nil, err
	}
	return pending, nil
}

// scanForName refreshes each Folder/File candidate as it scans for
// name. A refresh failure is never fatal to the scan (spec.md §4.4
// step 2, §4.6: "Logged; that child is skipped; resolution
// continues") — a transient transport error or a sibling's kind
// mismatch must not turn one unrelated child into a hard error for
// the whole lookup.
func (r *Registry) scanForName(ctx context.Context, children []*Entity, name string) *Entity {
	for _, c := range children {
		if c.Kind() == KindFolder || c.Kind() == KindFile {
			if err := r.Refresh(ctx, c, false); err != nil {
				log.Printf("[inode] refresh %s during find_by_name scan: %v", c.Path(), err)
				continue
			}
		}
		if c.Name() == name {
			return c
		}
	}
	return nil
}
