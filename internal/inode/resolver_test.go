package inode

import (
	"context"
	"testing"

	"github.com/rcosdp/rdmfs/internal/remote"
)

func TestChildrenOfAllProjectsFiltersAndSorts(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.userNodes = [][]remote.NodeSummary{
		{
			{ID: "b2", Title: "B", Type: "nodes"},
			{ID: "", Title: "blank id skipped", Type: "nodes"},
			{ID: "a1", Title: "A", Type: "nodes"},
			{ID: "reg1", Title: "registration excluded", Type: "nodes", Registration: true},
			{ID: "wrongtype", Title: "not a node", Type: "registrations"},
		},
		{
			{ID: "a1", Title: "A duplicate page", Type: "nodes"}, // dedup across pages
			{ID: "c3", Title: "C", Type: "nodes"},
		},
	}
	r := newTestRegistry(fr, Mode{AllProjects: true})
	root, _ := r.Get(context.Background(), RootID)

	children, err := r.ChildrenOf(context.Background(), root)
	if err != nil {
		t.Fatalf("ChildrenOf error = %v", err)
	}
	if len(children) != 3 {
		t.Fatalf("len(children) = %d, want 3 (a1, b2, c3)", len(children))
	}
	wantOrder := []string{"a1", "b2", "c3"}
	for i, want := range wantOrder {
		if got := children[i].RemoteID(); got != want {
			t.Errorf("children[%d].RemoteID() = %q, want %q", i, got, want)
		}
	}
}

func TestChildrenOfProjectOrdersSyntheticEntriesThenStorages(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "proj1", Title: "P", Attributes: map[string]any{"category": "project"}}
	fr.storages["proj1"] = []remote.StorageSummary{
		{Name: "osfstorage", ChildrenURL: "https://api/osfstorage/children"},
		{Name: "googledrive", ChildrenURL: "https://api/googledrive/children"},
	}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})
	project, _ := r.Get(context.Background(), RootID)

	children, err := r.ChildrenOf(context.Background(), project)
	if err != nil {
		t.Fatalf("ChildrenOf error = %v", err)
	}
	if len(children) != 5 {
		t.Fatalf("len(children) = %d, want 5", len(children))
	}
	wantKinds := []Kind{KindProjectAttributes, KindProjectChildren, KindProjectLinked, KindStorage, KindStorage}
	for i, want := range wantKinds {
		if children[i].Kind() != want {
			t.Errorf("children[%d].Kind() = %v, want %v", i, children[i].Kind(), want)
		}
	}
	if children[3].Name() != "osfstorage" || children[4].Name() != "googledrive" {
		t.Errorf("storages out of server order: %q, %q", children[3].Name(), children[4].Name())
	}
}

func TestChildrenOfIsCachedUntilInvalidated(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.userNodes = [][]remote.NodeSummary{{{ID: "a1", Type: "nodes"}}}
	r := newTestRegistry(fr, Mode{AllProjects: true})
	root, _ := r.Get(context.Background(), RootID)

	first, err := r.ChildrenOf(context.Background(), root)
	if err != nil {
		t.Fatalf("ChildrenOf error = %v", err)
	}

	// Remote now reports nothing, but the cached listing should still
	// be served without a second call (spec.md §4.2).
	fr.userNodes = nil
	second, err := r.ChildrenOf(context.Background(), root)
	if err != nil {
		t.Fatalf("ChildrenOf (cached) error = %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached ChildrenOf returned %d entries, want %d", len(second), len(first))
	}

	if err := r.Invalidate(root.ID(), ""); err != nil {
		t.Fatalf("Invalidate error = %v", err)
	}
	third, err := r.ChildrenOf(context.Background(), root)
	if err != nil {
		t.Fatalf("ChildrenOf (post-invalidate) error = %v", err)
	}
	if len(third) != 0 {
		t.Errorf("ChildrenOf after invalidation should re-list from the remote, got %d entries", len(third))
	}
}

func TestFindByNameFallsThroughCacheMissToFreshListing(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "proj1", Title: "P"}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})
	project, _ := r.Get(context.Background(), RootID)
	storage, err := r.ResolveStorage(project, remote.StorageSummary{Name: "osfstorage", ChildrenURL: "https://api/children"})
	if err != nil {
		t.Fatalf("ResolveStorage error = %v", err)
	}

	fr.objectChildren["https://api/children"] = [][]remote.ObjectSummary{
		{{Kind: remote.ObjectKindFile, Name: "present.txt", Path: "/present.txt"}},
	}

	found, err := r.FindByName(context.Background(), storage, "present.txt")
	if err != nil {
		t.Fatalf("FindByName error = %v", err)
	}
	if found == nil || found.Name() != "present.txt" {
		t.Fatalf("FindByName = %v, want present.txt", found)
	}

	missing, err := r.FindByName(context.Background(), storage, "absent.txt")
	if err != nil {
		t.Fatalf("FindByName(absent) error = %v", err)
	}
	if missing != nil {
		t.Errorf("FindByName(absent) = %v, want nil", missing)
	}
}
