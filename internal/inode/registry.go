package inode

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rcosdp/rdmfs/internal/remote"
)

// RootID is the inode number the FUSE bridge reserves for the mount
// root, matching the raw go-fuse API's FUSE_ROOT_ID.
const RootID uint64 = 1

// Mode selects what the root inode resolves to.
type Mode struct {
	AllProjects bool
	ProjectID   string // used only when AllProjects is false
}

// Registry is the identity registry (spec.md §4.1): it allocates and
// persists inode numbers and resolves (parent, remote-object) pairs to
// existing inodes by path equality. It also owns the listing cache,
// since both are mutated under the same single-writer discipline
// (spec.md §5, "Shared resource policy").
//
// The scheduling model the spec describes is single-threaded
// cooperative; go-fuse's raw server dispatches requests from a pool of
// goroutines, so a coarse mutex here is the Go-idiomatic stand-in for
// that single task-at-a-time guarantee, preserving the same ordering
// invariants (atomic listing replacement, no half-promoted NewFile).
type Registry struct {
	mu sync.Mutex

	remote  RemoteClient
	listing *ListingCache
	attrTTL time.Duration

	mode Mode

	entities map[uint64]*Entity
	nextHint uint64

	// refreshGroup collapses concurrent Refresh/ReadProjectAttributes
	// calls for the same entity into one remote round trip.
	refreshGroup singleflight.Group
}

func NewRegistry(rc RemoteClient, listing *ListingCache, attrTTL time.Duration, mode Mode) *Registry {
	return &Registry{
		remote:   rc,
		listing:  listing,
		attrTTL:  attrTTL,
		mode:     mode,
		entities: make(map[uint64]*Entity),
		nextHint: RootID + 1,
	}
}

// Get looks up an inode by number. A nil, nil result is a miss — it
// never errors except for the lazily-constructed root (spec.md §4.1).
func (r *Registry) Get(ctx context.Context, id uint64) (*Entity, error) {
	r.mu.Lock()
	e, ok := r.entities[id]
	r.mu.Unlock()
	if ok {
		return e, nil
	}
	if id != RootID {
		return nil, nil
	}
	return r.installRoot(ctx)
}

func (r *Registry) installRoot(ctx context.Context) (*Entity, error) {
	r.mu.Lock()
	if e, ok := r.entities[RootID]; ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	if r.mode.AllProjects {
		root := newProjectsRootProbe()
		root.id = RootID
		r.mu.Lock()
		r.entities[RootID] = root
		r.mu.Unlock()
		return root, nil
	}

	if r.mode.ProjectID == "" {
		return nil, &NotFoundError{Path: "/"}
	}
	meta, err := r.remote.GetProject(ctx, r.mode.ProjectID)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	root := newProjectProbe(nil, meta.ID, meta.Title, meta.Attributes)
	root.id = RootID

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entities[RootID]; ok {
		return e, nil
	}
	r.entities[RootID] = root
	return root, nil
}

// resolveOrAllocate implements spec.md §4.1's three-step procedure:
// dedup by canonical path against live inodes, then by (parent, name)
// against pending NewFile placeholders, then allocate.
func (r *Registry) resolveOrAllocate(probe *Entity) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entities {
		if e.removed {
			continue
		}
		if e.path != probe.path {
			continue
		}
		if e.kind == KindProjectAttributes && probe.kind == KindProjectAttributes {
			e.attributes = probe.attributes
			e.lastLoadedValid = false
		}
		if e.isNewFile && (probe.kind == KindFolder || probe.kind == KindFile) {
			// The remote listing has caught up with a locally-created
			// NewFile placeholder: promote it in place rather than
			// allocating a second inode for the same path (spec.md §3
			// invariant 3, §8 scenario S5).
			promoteNewFile(e, probe)
		}
		return e, nil
	}

	if probe.hasParent {
		if found := r.findNewFileByNameLocked(probe.parentID, probe.name); found != nil {
			return found, nil
		}
	}

	id, err := r.allocateLocked()
	if err != nil {
		return nil, err
	}
	probe.id = id
	if probe.kind == KindStorage {
		probe.storageID, probe.hasStorage = id, true
	}
	r.entities[id] = probe
	return probe, nil
}

func (r *Registry) findNewFileByNameLocked(parentID uint64, name string) *Entity {
	for _, e := range r.entities {
		if e.removed || e.kind != KindFile || !e.isNewFile {
			continue
		}
		if !e.hasParent || e.parentID != parentID {
			continue
		}
		if e.name == name {
			return e
		}
	}
	return nil
}

func (r *Registry) allocateLocked() (uint64, error) {
	id := r.nextHint
	for {
		if _, exists := r.entities[id]; !exists {
			if id == ^uint64(0) {
				r.nextHint = id
			} else {
				r.nextHint = id + 1
			}
			return id, nil
		}
		if id == ^uint64(0) {
			return 0, &OutOfInodesError{}
		}
		id++
	}
}

// Register allocates a NewFile placeholder under parent (spec.md §4.1,
// used when FUSE's create arrives before the remote object exists).
func (r *Registry) Register(parent *Entity, name string) (*Entity, error) {
	probe := newNewFileProbe(parent, name)
	return r.resolveOrAllocate(probe)
}

// ResolveProject materialises a project node encountered while listing
// ProjectsRoot, ProjectChildren, or ProjectLinked.
func (r *Registry) ResolveProject(parent *Entity, node remote.NodeSummary) (*Entity, error) {
	probe := newProjectProbe(parent, node.ID, node.Title, nil)
	return r.resolveOrAllocate(probe)
}

// ResolveProjectAttributes materialises (or refreshes) the
// .attributes.json descriptor for owner, given its currently-known
// attributes (possibly empty until the virtual file is read).
func (r *Registry) ResolveProjectAttributes(owner *Entity, attrs map[string]any) (*Entity, error) {
	probe := newProjectAttributesProbe(owner, attrs)
	return r.resolveOrAllocate(probe)
}

func (r *Registry) ResolveProjectChildren(owner *Entity) (*Entity, error) {
	return r.resolveOrAllocate(newProjectChildrenProbe(owner))
}

func (r *Registry) ResolveProjectLinked(owner *Entity) (*Entity, error) {
	return r.resolveOrAllocate(newProjectLinkedProbe(owner))
}

func (r *Registry) ResolveStorage(project *Entity, s remote.StorageSummary) (*Entity, error) {
	return r.resolveOrAllocate(newStorageProbe(project, s))
}

// ResolveObject materialises a Folder or File from a remote listing.
func (r *Registry) ResolveObject(parent, storage *Entity, obj remote.ObjectSummary) (*Entity, error) {
	return r.resolveOrAllocate(newObjectProbe(parent, storage, obj))
}

// Invalidate drops the listing-cache entry keyed by id and runs the
// entity's own invalidation hook (spec.md §4.1). name, when non-empty,
// records an externally-observed rename for a File/Folder so the next
// refresh looks it up by its new name first.
func (r *Registry) Invalidate(id uint64, name string) error {
	r.mu.Lock()
	e, ok := r.entities[id]
	r.mu.Unlock()
	if !ok {
		return &UnknownInodeError{ID: id}
	}

	r.listing.Delete(id)

	switch e.kind {
	case KindProjectAttributes:
		r.mu.Lock()
		e.attrContent = nil
		r.mu.Unlock()
	case KindFolder, KindFile:
		r.mu.Lock()
		e.lastLoadedValid = false
		e.invalidated = true
		if name != "" {
			e.updatedName = name
		}
		r.mu.Unlock()
	}
	return nil
}

// MarkRemoved tombstones an inode: removal retains the slot forever
// within the mount (spec.md invariant 4), excluding it from future
// path-equality dedup (spec.md invariant 6/S6).
func (r *Registry) MarkRemoved(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return &UnknownInodeError{ID: id}
	}
	e.removed = true
	return nil
}
