// Package inode is the core of RDMFS: it manufactures stable inode
// numbers for remote objects, caches directory listings and object
// metadata with bounded staleness, reconciles locally-pending
// "NewFile" placeholders with their later authoritative form, and
// exposes a uniform interface over the project/storage/folder/file
// hierarchy plus the synthetic .attributes.json/.children/.linked
// entries. Everything here is single-writer: the Registry serializes
// all mutation behind one mutex, matching the cooperative scheduling
// model the FUSE bridge drives it with.
package inode

import "time"

// Kind tags which of the entity variants an Entity holds. RDMFS models
// the hierarchy as one tagged-variant struct with kind-dispatched
// methods rather than a class hierarchy, since the capability set
// across kinds is small and uniform.
type Kind uint8

const (
	KindProjectsRoot Kind = iota
	KindProject
	KindProjectAttributes
	KindProjectChildren
	KindProjectLinked
	KindStorage
	KindFolder
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindProjectsRoot:
		return "projects-root"
	case KindProject:
		return "project"
	case KindProjectAttributes:
		return "project-attributes"
	case KindProjectChildren:
		return "project-children"
	case KindProjectLinked:
		return "project-linked"
	case KindStorage:
		return "storage"
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Entity is one inode: an arena-allocated record referencing its
// parent and storage by inode number rather than by pointer, per the
// arena + stable-index-handle model — this keeps the forest acyclic
// and makes tombstoning (Removed) a flag flip rather than a graph edit.
type Entity struct {
	id      uint64
	kind    Kind
	removed bool

	parentID  uint64
	hasParent bool

	storageID  uint64
	hasStorage bool

	name string

	// path is the canonical identity string used for dedup in
	// resolveOrAllocate; displayPath is the human-facing path used in
	// logs and whitelist matching. They usually coincide but are
	// computed by different rules (see the probe builders in
	// construct.go) and are allowed to diverge.
	path        string
	displayPath string

	// Project
	remoteID   string
	title      string
	attributes map[string]any

	// Storage
	storageName string

	// Folder / File (remote object)
	remotePath   string // storage-relative path as reported by the remote API; folders end in "/"
	size         string
	hasSize      bool
	dateCreated  time.Time
	dateModified time.Time
	downloadURL  string
	uploadURL    string
	selfURL      string
	childrenURL  string // listing endpoint for this object's own children; empty for files
	isNewFile    bool

	// Attribute cache bookkeeping (Folder / File only, spec.md §4.3).
	// lastLoadedValid mirrors "last_loaded: time | bottom": false means
	// the timer has been cleared and a refresh is due regardless of
	// age. invalidated is sticky once set and, together with
	// isNewFile, implements the "never-invalidated NewFile skips
	// refresh entirely" short circuit independent of the TTL timer.
	lastLoaded      time.Time
	lastLoadedValid bool
	invalidated     bool
	updatedName     string

	// ProjectAttributes virtual-file content (spec.md §4.5)
	attrContent []byte
}

func (e *Entity) ID() uint64   { return e.id }
func (e *Entity) Kind() Kind   { return e.kind }
func (e *Entity) Name() string { return e.name }
func (e *Entity) Path() string { return e.path }

// DisplayPath is the human-facing absolute path, precomputed at
// construction from the parent's own DisplayPath.
func (e *Entity) DisplayPath() string { return e.displayPath }

func (e *Entity) Removed() bool { return e.removed }

func (e *Entity) ParentID() (uint64, bool) { return e.parentID, e.hasParent }
func (e *Entity) StorageID() (uint64, bool) { return e.storageID, e.hasStorage }

func (e *Entity) Title() string { return e.title }

// Attributes returns the project's attribute dictionary. Callers must
// not mutate the returned map.
func (e *Entity) Attributes() map[string]any { return e.attributes }

func (e *Entity) RemoteID() string { return e.remoteID }

func (e *Entity) Size() (string, bool) { return e.size, e.hasSize }

func (e *Entity) DateCreated() time.Time  { return e.dateCreated }
func (e *Entity) DateModified() time.Time { return e.dateModified }
func (e *Entity) DownloadURL() string     { return e.downloadURL }
func (e *Entity) UploadURL() string       { return e.uploadURL }
func (e *Entity) SelfURL() string         { return e.selfURL }
func (e *Entity) ChildrenURL() string     { return e.childrenURL }
func (e *Entity) IsNewFile() bool         { return e.isNewFile }

// HasChildren reports whether the entity is a directory.
func (e *Entity) HasChildren() bool {
	switch e.kind {
	case KindProjectsRoot, KindProject, KindProjectChildren, KindProjectLinked, KindStorage, KindFolder:
		return true
	default:
		return false
	}
}

// CanCreate reports whether new children may be created under this
// entity: storages and folders, per spec.md §3.
func (e *Entity) CanCreate() bool {
	return e.kind == KindStorage || e.kind == KindFolder
}

// CanMove reports whether the entity itself may be renamed or moved:
// folders and files, per spec.md §3.
func (e *Entity) CanMove() bool {
	return e.kind == KindFolder || e.kind == KindFile
}

// needsAttrRefresh is used only by Folder/File kinds (attrcache.go).
func (e *Entity) needsAttrRefresh(force bool, ttl time.Duration) bool {
	if e.isNewFile && !e.invalidated {
		// NewFile that has never been invalidated: nothing to fetch.
		return false
	}
	if force {
		return true
	}
	if !e.lastLoadedValid {
		return true
	}
	return time.Since(e.lastLoaded) > ttl
}
