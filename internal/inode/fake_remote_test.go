package inode

import (
	"context"

	"github.com/rcosdp/rdmfs/internal/remote"
)

// fakePager feeds a fixed sequence of pages, one per Next call, then
// returns nil, nil — standing in for remote.Pager in tests without a
// live HTTP server.
type fakePager[T any] struct {
	pages [][]T
	i     int
}

func (p *fakePager[T]) Next(ctx context.Context) ([]T, error) {
	if p.i >= len(p.pages) {
		return nil, nil
	}
	page := p.pages[p.i]
	p.i++
	return page, nil
}

// fakeRemote is an in-memory stand-in for RemoteClient, letting tests
// script node/object listings directly.
type fakeRemote struct {
	project        *remote.ProjectMeta
	userNodes      [][]remote.NodeSummary
	nodeChildren   map[string][][]remote.NodeSummary
	nodeLinked     map[string][][]remote.NodeSummary
	storages       map[string][]remote.StorageSummary
	objectChildren map[string][][]remote.ObjectSummary
	getProjectErr  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		nodeChildren:   make(map[string][][]remote.NodeSummary),
		nodeLinked:     make(map[string][][]remote.NodeSummary),
		storages:       make(map[string][]remote.StorageSummary),
		objectChildren: make(map[string][][]remote.ObjectSummary),
	}
}

func (f *fakeRemote) GetProject(ctx context.Context, id string) (*remote.ProjectMeta, error) {
	if f.getProjectErr != nil {
		return nil, f.getProjectErr
	}
	return f.project, nil
}

func (f *fakeRemote) ListUserNodes(ctx context.Context) NodePager {
	return &fakePager[remote.NodeSummary]{pages: f.userNodes}
}

func (f *fakeRemote) ListNodeChildren(ctx context.Context, nodeID string) NodePager {
	return &fakePager[remote.NodeSummary]{pages: f.nodeChildren[nodeID]}
}

func (f *fakeRemote) ListNodeLinked(ctx context.Context, nodeID string) NodePager {
	return &fakePager[remote.NodeSummary]{pages: f.nodeLinked[nodeID]}
}

func (f *fakeRemote) ListStorages(ctx context.Context, nodeID string) ([]remote.StorageSummary, error) {
	return f.storages[nodeID], nil
}

func (f *fakeRemote) ListObjectChildren(ctx context.Context, childrenURL string) ObjectPager {
	return &fakePager[remote.ObjectSummary]{pages: f.objectChildren[childrenURL]}
}
