package fusebridge

import (
	"syscall"

	"github.com/rcosdp/rdmfs/internal/inode"
)

// errnoFor translates the core's typed errors into the errno the
// kernel expects (spec.md §7: "errors always map to an errno the
// bridge returns to the kernel").
func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return syscall.Errno(0)
	case inode.IsNotFound(err), inode.IsUnknownInode(err):
		return syscall.ENOENT
	case inode.IsNotADirectory(err):
		return syscall.ENOTDIR
	case inode.IsADirectory(err):
		return syscall.EISDIR
	case inode.IsOutOfInodes(err):
		return syscall.ENOSPC
	default:
		return syscall.EIO
	}
}
