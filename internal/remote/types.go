// Package remote implements the HTTP/JSON adapter that the inode core
// (internal/inode) consumes as its external remote-client contract
// (spec.md §6). It speaks a JSON:API-style protocol modeled on the Open
// Science Framework's v2 API: collections are paginated via
// `links.next`, resources carry a `type` and an `attributes` object.
package remote

import (
	"strconv"
	"time"
)

// NodeSummary is the minimal representation of a project node used for
// listing and filtering (spec.md §4.4 "Project node filtering").
type NodeSummary struct {
	ID           string
	Title        string
	Type         string // JSON:API "type"; only "nodes" is listable
	Registration bool
}

// ProjectMeta is a project's authoritative attribute set, as fetched by
// GetProject and by the .attributes.json refresh closure (spec.md §4.5).
type ProjectMeta struct {
	ID         string
	Title      string
	Attributes map[string]any
}

// StorageSummary names one storage provider attached to a project
// (e.g. "osfstorage", "googledrive"). ChildrenURL is the listing
// endpoint for objects directly under the provider root.
type StorageSummary struct {
	Name        string
	ChildrenURL string
}

// ObjectKind distinguishes folders from files within a storage.
type ObjectKind string

const (
	ObjectKindFile   ObjectKind = "file"
	ObjectKindFolder ObjectKind = "folder"
)

// ObjectSummary is a file or folder entry within a storage provider.
// The remote API may report Size as either a JSON number or a numeric
// string (spec.md Open Question 3); both are carried here as a decimal
// string, and Int64() parses it for callers that need a number.
type ObjectSummary struct {
	Path         string // remote path as received, leading slash included; stripped when canonical paths are built
	Kind         ObjectKind
	Name         string
	Size         string // raw value as received; "" when absent
	DateCreated  time.Time
	DateModified time.Time
	DownloadURL  string
	UploadURL    string
	SelfURL      string
	// ChildrenURL is the listing endpoint for this object's own
	// children; empty for files. Used both by the initial listing and
	// by a later direct re-fetch during attribute refresh.
	ChildrenURL string
}

// Int64 parses Size as an integer, returning (0, false) when Size is
// empty or not a valid integer.
func (o ObjectSummary) Int64() (int64, bool) {
	if o.Size == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(o.Size, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
