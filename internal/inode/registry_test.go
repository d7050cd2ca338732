package inode

import (
	"context"
	"testing"
	"time"

	"github.com/rcosdp/rdmfs/internal/remote"
)

func newTestRegistry(fr *fakeRemote, mode Mode) *Registry {
	return NewRegistry(fr, NewListingCache(time.Minute, 0), time.Minute, mode)
}

func TestInstallRootSingleProject(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "abc12", Title: "My Project"}
	r := newTestRegistry(fr, Mode{ProjectID: "abc12"})

	root, err := r.Get(context.Background(), RootID)
	if err != nil {
		t.Fatalf("Get(root) error = %v", err)
	}
	if root.Kind() != KindProject {
		t.Errorf("root.Kind() = %v, want KindProject", root.Kind())
	}
	if root.RemoteID() != "abc12" {
		t.Errorf("root.RemoteID() = %q, want abc12", root.RemoteID())
	}
	if root.DisplayPath() != "/" {
		t.Errorf("root.DisplayPath() = %q, want /", root.DisplayPath())
	}

	// Second call returns the same entity, not a fresh allocation.
	again, err := r.Get(context.Background(), RootID)
	if err != nil {
		t.Fatalf("Get(root) second call error = %v", err)
	}
	if again != root {
		t.Error("Get(root) should return the cached root on subsequent calls")
	}
}

func TestInstallRootMissingProjectID(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(newFakeRemote(), Mode{})
	_, err := r.Get(context.Background(), RootID)
	if !IsNotFound(err) {
		t.Errorf("Get(root) with no project configured, err = %v, want NotFoundError", err)
	}
}

func TestInstallRootAllProjects(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(newFakeRemote(), Mode{AllProjects: true})
	root, err := r.Get(context.Background(), RootID)
	if err != nil {
		t.Fatalf("Get(root) error = %v", err)
	}
	if root.Kind() != KindProjectsRoot {
		t.Errorf("root.Kind() = %v, want KindProjectsRoot", root.Kind())
	}
}

func TestResolveObjectDedupsByPath(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "proj1", Title: "P"}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})

	project, _ := r.Get(context.Background(), RootID)
	storage, err := r.ResolveStorage(project, remote.StorageSummary{Name: "osfstorage", ChildrenURL: "https://api/storages/osfstorage/children"})
	if err != nil {
		t.Fatalf("ResolveStorage error = %v", err)
	}

	obj := remote.ObjectSummary{Kind: remote.ObjectKindFile, Name: "notes.txt", Path: "/notes.txt"}
	a, err := r.ResolveObject(storage, storage, obj)
	if err != nil {
		t.Fatalf("ResolveObject error = %v", err)
	}
	b, err := r.ResolveObject(storage, storage, obj)
	if err != nil {
		t.Fatalf("ResolveObject (second) error = %v", err)
	}
	if a.ID() != b.ID() {
		t.Errorf("ResolveObject called twice on the same path allocated two ids: %d, %d", a.ID(), b.ID())
	}
}

func TestRegisterNewFileThenPromoted(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "proj1", Title: "P"}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})

	project, _ := r.Get(context.Background(), RootID)
	storage, err := r.ResolveStorage(project, remote.StorageSummary{Name: "osfstorage", ChildrenURL: "https://api/children"})
	if err != nil {
		t.Fatalf("ResolveStorage error = %v", err)
	}

	placeholder, err := r.Register(storage, "draft.txt")
	if err != nil {
		t.Fatalf("Register error = %v", err)
	}
	if !placeholder.IsNewFile() {
		t.Fatal("Register() should produce a NewFile placeholder")
	}
	placeholderID := placeholder.ID()

	// The remote now reports the same file as an authoritative object.
	fr.objectChildren["https://api/children"] = [][]remote.ObjectSummary{
		{{Kind: remote.ObjectKindFile, Name: "draft.txt", Path: "/draft.txt", Size: "128"}},
	}

	found, err := r.FindByName(context.Background(), storage, "draft.txt")
	if err != nil {
		t.Fatalf("FindByName error = %v", err)
	}
	if found == nil {
		t.Fatal("FindByName should find the promoted file")
	}
	if found.ID() != placeholderID {
		t.Errorf("promoted file id = %d, want unchanged placeholder id %d", found.ID(), placeholderID)
	}
	if found.IsNewFile() {
		t.Error("file should no longer report IsNewFile() after promotion")
	}
	if size, ok := found.Size(); !ok || size != "128" {
		t.Errorf("promoted file Size() = %q, %v, want 128, true", size, ok)
	}
}

func TestMarkRemovedTombstone(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "proj1", Title: "P"}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})

	project, _ := r.Get(context.Background(), RootID)
	storage, err := r.ResolveStorage(project, remote.StorageSummary{Name: "osfstorage", ChildrenURL: "https://api/children"})
	if err != nil {
		t.Fatalf("ResolveStorage error = %v", err)
	}
	obj := remote.ObjectSummary{Kind: remote.ObjectKindFile, Name: "gone.txt", Path: "/gone.txt"}
	file, err := r.ResolveObject(storage, storage, obj)
	if err != nil {
		t.Fatalf("ResolveObject error = %v", err)
	}

	if err := r.MarkRemoved(file.ID()); err != nil {
		t.Fatalf("MarkRemoved error = %v", err)
	}
	if !file.Removed() {
		t.Error("entity should be marked removed")
	}

	// A later probe with the same path must not be deduped against the
	// tombstoned entity: it gets a fresh id (spec.md invariant 6).
	again, err := r.ResolveObject(storage, storage, obj)
	if err != nil {
		t.Fatalf("ResolveObject (after removal) error = %v", err)
	}
	if again.ID() == file.ID() {
		t.Error("re-resolving a path after removal should not reuse the tombstoned id")
	}
}

func TestInvalidateUnknownInode(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(newFakeRemote(), Mode{AllProjects: true})
	err := r.Invalidate(9999, "")
	if !IsUnknownInode(err) {
		t.Errorf("Invalidate(unknown) err = %v, want UnknownInodeError", err)
	}
}
