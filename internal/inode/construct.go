package inode

import (
	"strings"
	"time"

	"github.com/rcosdp/rdmfs/internal/remote"
)

// The functions in this file build "probe" entities: fully-formed
// Entity values with id left at 0. Registry.resolveOrAllocate uses a
// probe's path to dedup against live inodes before deciding whether to
// allocate a real id for it (spec.md §4.1, resolve_or_allocate).

func newProjectsRootProbe() *Entity {
	return &Entity{
		kind:        KindProjectsRoot,
		path:        "/",
		displayPath: "/",
	}
}

func newProjectProbe(parent *Entity, remoteID, title string, attrs map[string]any) *Entity {
	e := &Entity{
		kind:       KindProject,
		name:       remoteID,
		remoteID:   remoteID,
		title:      title,
		attributes: attrs,
	}
	if parent != nil {
		e.parentID, e.hasParent = parent.id, true
		e.path = parent.path + remoteID + "/"
		e.displayPath = parent.displayPath + remoteID + "/"
	} else {
		e.path = "/" + remoteID + "/"
		e.displayPath = "/"
	}
	return e
}

func newProjectAttributesProbe(owner *Entity, attrs map[string]any) *Entity {
	return &Entity{
		kind:        KindProjectAttributes,
		parentID:    owner.id,
		hasParent:   true,
		name:        ".attributes.json",
		path:        owner.path + ".attributes.json",
		displayPath: owner.displayPath + ".attributes.json",
		attributes:  attrs,
	}
}

func newProjectChildrenProbe(owner *Entity) *Entity {
	return &Entity{
		kind:        KindProjectChildren,
		parentID:    owner.id,
		hasParent:   true,
		name:        ".children",
		path:        owner.path + ".children/",
		displayPath: owner.displayPath + ".children/",
	}
}

func newProjectLinkedProbe(owner *Entity) *Entity {
	return &Entity{
		kind:        KindProjectLinked,
		parentID:    owner.id,
		hasParent:   true,
		name:        ".linked",
		path:        owner.path + ".linked/",
		displayPath: owner.displayPath + ".linked/",
	}
}

func newStorageProbe(project *Entity, s remote.StorageSummary) *Entity {
	return &Entity{
		kind:        KindStorage,
		parentID:    project.id,
		hasParent:   true,
		name:        s.Name,
		storageName: s.Name,
		path:        project.path + s.Name + "/",
		displayPath: project.displayPath + s.Name + "/",
		childrenURL: s.ChildrenURL,
	}
}

// newObjectProbe builds a Folder or File probe from a remote object
// summary. parent is the immediate directory this object was listed
// under (used for displayPath and tree navigation); storage is the
// enclosing Storage entity (used for the canonical path, which is
// storage-relative regardless of nesting depth, per spec.md §3).
func newObjectProbe(parent, storage *Entity, obj remote.ObjectSummary) *Entity {
	remotePath := strings.TrimPrefix(obj.Path, "/")
	kind := KindFile
	displaySuffix := obj.Name
	if obj.Kind == remote.ObjectKindFolder {
		kind = KindFolder
		displaySuffix = obj.Name + "/"
	}

	e := &Entity{
		kind:            kind,
		parentID:        parent.id,
		hasParent:       true,
		storageID:       storage.id,
		hasStorage:      true,
		name:            obj.Name,
		path:            storage.path + remotePath,
		displayPath:     parent.displayPath + displaySuffix,
		remotePath:      obj.Path,
		dateCreated:     obj.DateCreated,
		dateModified:    obj.DateModified,
		downloadURL:     obj.DownloadURL,
		uploadURL:       obj.UploadURL,
		selfURL:         obj.SelfURL,
		childrenURL:     obj.ChildrenURL,
		lastLoaded:      time.Now(),
		lastLoadedValid: true,
	}
	if obj.Size != "" {
		e.size, e.hasSize = obj.Size, true
	}
	return e
}

// promoteNewFile copies an authoritative Folder/File probe's remote
// fields onto a previously locally-created NewFile placeholder,
// keeping the placeholder's id (spec.md §3 invariant 3, §8 scenario
// S5: register(...) then a later listing observes the same object —
// find_by_name must keep returning the same inode, now with
// is_new_file false and real attributes).
func promoteNewFile(e, probe *Entity) {
	e.kind = probe.kind
	e.parentID, e.hasParent = probe.parentID, probe.hasParent
	e.storageID, e.hasStorage = probe.storageID, probe.hasStorage
	e.name = probe.name
	e.displayPath = probe.displayPath
	e.remotePath = probe.remotePath
	e.dateCreated = probe.dateCreated
	e.dateModified = probe.dateModified
	e.downloadURL = probe.downloadURL
	e.uploadURL = probe.uploadURL
	e.selfURL = probe.selfURL
	e.childrenURL = probe.childrenURL
	e.size, e.hasSize = probe.size, probe.hasSize
	e.lastLoaded = probe.lastLoaded
	e.lastLoadedValid = probe.lastLoadedValid
	e.updatedName = ""
	e.isNewFile = false
}

func newNewFileProbe(parent *Entity, name string) *Entity {
	storageID, hasStorage := parent.StorageID()
	return &Entity{
		kind:            KindFile,
		parentID:        parent.id,
		hasParent:       true,
		storageID:       storageID,
		hasStorage:      hasStorage,
		name:            name,
		path:            parent.path + name,
		displayPath:     parent.displayPath + name,
		isNewFile:       true,
		lastLoaded:      time.Now(),
		lastLoadedValid: true,
	}
}
