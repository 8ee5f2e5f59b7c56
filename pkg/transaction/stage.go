package transaction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/mossforge/moss/pkg/types"
)

// deferredNode is a device/fifo/socket node the staging pass couldn't
// create for lack of privilege. buildStagingTree returns them to its
// caller; Engine.execute discards the list and nothing replays them, so
// such nodes are absent from the activated tree.
type deferredNode struct {
	Path string
	Mode uint32
	UID  uint32
	GID  uint32
	Type types.EntryType
}

// buildStagingTree materialises every layout entry under stagingUsr:
// directories first (shallowest paths first, so parents always precede
// children), then files, symlinks, and device nodes.
func buildStagingTree(store BlobStore, stagingUsr string, allEntries map[types.Hash][]types.LayoutEntry) ([]deferredNode, error) {
	var entries []types.LayoutEntry
	for _, es := range allEntries {
		entries = append(entries, es...)
	}
	sort.Slice(entries, func(i, j int) bool {
		di, dj := strings.Count(entries[i].Path, "/"), strings.Count(entries[j].Path, "/")
		if di != dj {
			return di < dj
		}
		return entries[i].Path < entries[j].Path
	})

	if err := os.MkdirAll(stagingUsr, 0755); err != nil {
		return nil, fmt.Errorf("transaction: create staging usr: %w", err)
	}

	var deferred []deferredNode
	for _, e := range entries {
		target := filepath.Join(stagingUsr, e.Path)
		parent := filepath.Dir(target)
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, fmt.Errorf("transaction: create parent of %s: %w", e.Path, err)
		}

		switch e.Type {
		case types.EntryDirectory:
			if err := os.MkdirAll(target, os.FileMode(e.Mode&0o7777)); err != nil {
				return nil, fmt.Errorf("transaction: mkdir %s: %w", e.Path, err)
			}
			if err := unix.Chown(target, int(e.UID), int(e.GID)); err != nil {
				return nil, fmt.Errorf("transaction: chown %s: %w", e.Path, err)
			}
		case types.EntryRegular:
			if err := store.LinkInto(e.ContentHash, target, e.Mode, e.UID, e.GID); err != nil {
				return nil, fmt.Errorf("transaction: materialise %s: %w", e.Path, err)
			}
		case types.EntrySymlink:
			if err := unix.Symlinkat(e.SymlinkTarget, unix.AT_FDCWD, target); err != nil && !errors.Is(err, unix.EEXIST) {
				return nil, fmt.Errorf("transaction: symlink %s: %w", e.Path, err)
			}
			if err := unix.Fchownat(unix.AT_FDCWD, target, int(e.UID), int(e.GID), unix.AT_SYMLINK_NOFOLLOW); err != nil {
				return nil, fmt.Errorf("transaction: lchown %s: %w", e.Path, err)
			}
		case types.EntryCharDevice, types.EntryBlockDevice, types.EntryFIFO, types.EntrySocket:
			mode := deviceMode(e.Type) | (e.Mode & 0o7777)
			if err := unix.Mknodat(unix.AT_FDCWD, target, mode, 0); err != nil {
				if errors.Is(err, unix.EPERM) {
					deferred = append(deferred, deferredNode{Path: e.Path, Mode: e.Mode, UID: e.UID, GID: e.GID, Type: e.Type})
					continue
				}
				return nil, fmt.Errorf("transaction: mknod %s: %w", e.Path, err)
			}
		}
	}
	return deferred, nil
}

func deviceMode(t types.EntryType) uint32 {
	switch t {
	case types.EntryCharDevice:
		return unix.S_IFCHR
	case types.EntryBlockDevice:
		return unix.S_IFBLK
	case types.EntryFIFO:
		return unix.S_IFIFO
	case types.EntrySocket:
		return unix.S_IFSOCK
	default:
		return 0
	}
}
