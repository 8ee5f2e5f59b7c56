package hashstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/mossforge/moss/pkg/types"
)

// LinkInto materialises the blob named by hash at targetPath, owned by
// uid:gid with the given mode. It hardlinks from the store when possible;
// on cross-filesystem targets (EXDEV) it falls back to a full copy, per
// spec.md §4.2.
func (s *Store) LinkInto(hash types.Hash, targetPath string, mode uint32, uid, gid uint32) error {
	src := s.PathFor(hash)

	if err := os.Link(src, targetPath); err != nil {
		if !errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("hashstore: link %s: %w", targetPath, err)
		}
		if err := copyFallback(src, targetPath); err != nil {
			return fmt.Errorf("hashstore: copy fallback %s: %w", targetPath, err)
		}
	}

	if err := unix.Fchmodat(unix.AT_FDCWD, targetPath, mode&0o7777, unix.AT_SYMLINK_NOFOLLOW); err != nil && !errors.Is(err, unix.ENOTSUP) {
		return fmt.Errorf("hashstore: chmod %s: %w", targetPath, err)
	}
	if err := unix.Fchownat(unix.AT_FDCWD, targetPath, int(uid), int(gid), unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fmt.Errorf("hashstore: chown %s: %w", targetPath, err)
	}
	return nil
}

// copyFallback copies src to dst byte-for-byte. The kernel's
// copy_file_range/reflink fast paths are attempted implicitly by the
// runtime's io.Copy special-casing on Linux; this function is the
// portable fallback when that's unavailable.
func copyFallback(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
