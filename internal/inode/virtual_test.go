package inode

import (
	"context"
	"testing"

	"github.com/rcosdp/rdmfs/internal/remote"
)

func TestReadProjectAttributesLazyFetchAndCache(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{
		ID:    "proj1",
		Title: "P",
		Attributes: map[string]any{
			"title":    "P",
			"category": "project",
		},
	}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})
	project, err := r.Get(context.Background(), RootID)
	if err != nil {
		t.Fatalf("Get(root) error = %v", err)
	}
	descriptor, err := r.ResolveProjectAttributes(project, nil)
	if err != nil {
		t.Fatalf("ResolveProjectAttributes error = %v", err)
	}

	body, err := r.ReadProjectAttributes(context.Background(), descriptor)
	if err != nil {
		t.Fatalf("ReadProjectAttributes error = %v", err)
	}
	want := "{\n  \"category\": \"project\",\n  \"title\": \"P\"\n}"
	if string(body) != want {
		t.Errorf("ReadProjectAttributes = %q, want %q", string(body), want)
	}

	// A second read must not hit the remote again: make the fake error
	// if called, and confirm the cached bytes are returned unchanged.
	fr.getProjectErr = errAlreadyCalled
	again, err := r.ReadProjectAttributes(context.Background(), descriptor)
	if err != nil {
		t.Fatalf("ReadProjectAttributes (cached) error = %v", err)
	}
	if string(again) != want {
		t.Errorf("cached ReadProjectAttributes = %q, want %q", string(again), want)
	}
}

func TestReadProjectAttributesEmptyObject(t *testing.T) {
	t.Parallel()
	fr := newFakeRemote()
	fr.project = &remote.ProjectMeta{ID: "proj1", Title: "P"}
	r := newTestRegistry(fr, Mode{ProjectID: "proj1"})
	project, _ := r.Get(context.Background(), RootID)
	descriptor, err := r.ResolveProjectAttributes(project, nil)
	if err != nil {
		t.Fatalf("ResolveProjectAttributes error = %v", err)
	}

	body, err := r.ReadProjectAttributes(context.Background(), descriptor)
	if err != nil {
		t.Fatalf("ReadProjectAttributes error = %v", err)
	}
	if string(body) != "{}" {
		t.Errorf("ReadProjectAttributes with no attributes = %q, want {}", string(body))
	}
}

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errAlreadyCalled = sentinelError("ReadProjectAttributes should have used the cached descriptor")
