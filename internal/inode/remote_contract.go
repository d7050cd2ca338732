package inode

import (
	"context"

	"github.com/rcosdp/rdmfs/internal/remote"
)

// NodePager is the lazy-pagination contract for project-node listings
// (spec.md §6, "async iterators over children"). *remote.Pager[remote.NodeSummary]
// satisfies this.
type NodePager interface {
	Next(ctx context.Context) ([]remote.NodeSummary, error)
}

// ObjectPager is the lazy-pagination contract for storage object
// listings. *remote.Pager[remote.ObjectSummary] satisfies this.
type ObjectPager interface {
	Next(ctx context.Context) ([]remote.ObjectSummary, error)
}

// RemoteClient is the external collaborator the core depends on
// (spec.md §6, "Remote-client contract consumed by the core"). The
// core never talks HTTP itself; internal/remote.Client is adapted to
// this interface by RemoteAdapter below.
type RemoteClient interface {
	GetProject(ctx context.Context, id string) (*remote.ProjectMeta, error)
	ListUserNodes(ctx context.Context) NodePager
	ListNodeChildren(ctx context.Context, nodeID string) NodePager
	ListNodeLinked(ctx context.Context, nodeID string) NodePager
	ListStorages(ctx context.Context, nodeID string) ([]remote.StorageSummary, error)
	ListObjectChildren(ctx context.Context, childrenURL string) ObjectPager
}

// RemoteAdapter adapts *remote.Client to RemoteClient. It exists
// because remote.Client's pager methods return the concrete
// *remote.Pager[T] type for callers that don't need the interface;
// Go's lack of covariant method sets means the concrete type cannot
// satisfy RemoteClient directly.
type RemoteAdapter struct {
	Client *remote.Client
}

func (a RemoteAdapter) GetProject(ctx context.Context, id string) (*remote.ProjectMeta, error) {
	return a.Client.GetProject(ctx, id)
}

func (a RemoteAdapter) ListUserNodes(ctx context.Context) NodePager {
	return a.Client.ListUserNodes(ctx)
}

func (a RemoteAdapter) ListNodeChildren(ctx context.Context, nodeID string) NodePager {
	return a.Client.ListNodeChildren(ctx, nodeID)
}

func (a RemoteAdapter) ListNodeLinked(ctx context.Context, nodeID string) NodePager {
	return a.Client.ListNodeLinked(ctx, nodeID)
}

func (a RemoteAdapter) ListStorages(ctx context.Context, nodeID string) ([]remote.StorageSummary, error) {
	return a.Client.ListStorages(ctx, nodeID)
}

func (a RemoteAdapter) ListObjectChildren(ctx context.Context, childrenURL string) ObjectPager {
	return a.Client.ListObjectChildren(ctx, childrenURL)
}
