package inode

import (
	"errors"
	"fmt"
)

// NotFoundError means the requested object does not exist remotely.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("inode: not found: %s", e.Path) }

// NotADirectoryError means an operation requiring a directory was
// attempted against a non-directory entity.
type NotADirectoryError struct {
	Path string
}

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("inode: not a directory: %s", e.Path)
}

// IsADirectoryError means a file-only operation hit a directory.
type IsADirectoryError struct {
	Path string
}

func (e *IsADirectoryError) Error() string {
	return fmt.Sprintf("inode: is a directory: %s", e.Path)
}

// UnknownInodeError means an integer inode number has no registered
// Entity.
type UnknownInodeError struct {
	ID uint64
}

func (e *UnknownInodeError) Error() string {
	return fmt.Sprintf("inode: unknown inode %d", e.ID)
}

// OutOfInodesError means the allocator could not find a free id.
// Practically unreachable: it would require exhausting the uint64
// space within one mount's lifetime.
type OutOfInodesError struct{}

func (e *OutOfInodesError) Error() string { return "inode: out of inode numbers" }

// TransportError wraps a failure from the remote client adapter.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("inode: transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsNotADirectory(err error) bool {
	var target *NotADirectoryError
	return errors.As(err, &target)
}

func IsADirectory(err error) bool {
	var target *IsADirectoryError
	return errors.As(err, &target)
}

func IsUnknownInode(err error) bool {
	var target *UnknownInodeError
	return errors.As(err, &target)
}

func IsOutOfInodes(err error) bool {
	var target *OutOfInodesError
	return errors.As(err, &target)
}
