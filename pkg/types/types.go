// Package types holds the domain model shared by every moss package: the
// decoded shape of a .stone container, the rows persisted in the three
// databases, and the sets the resolver and transaction engine pass around.
package types

import "time"

// Hash is a 128-bit content hash: a blob's identity in the hash store, or a
// .stone file's own package hash.
type Hash [16]byte

// IsZero reports whether h has never been set.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// DependencyKind tags how a Dependency or Provider string should be
// interpreted when matched against the provider graph.
type DependencyKind uint8

const (
	KindPackageName DependencyKind = iota
	KindSharedLibrary
	KindPkgConfig
	KindPkgConfig32
	KindInterpreter
	KindCMake
	KindPythonModule
	KindBinary
	KindSystemBinary
)

// String renders a DependencyKind the way moss.yaml/stone records name it.
func (k DependencyKind) String() string {
	switch k {
	case KindPackageName:
		return "name"
	case KindSharedLibrary:
		return "soname"
	case KindPkgConfig:
		return "pkgconfig"
	case KindPkgConfig32:
		return "pkgconfig32"
	case KindInterpreter:
		return "interpreter"
	case KindCMake:
		return "cmake"
	case KindPythonModule:
		return "python"
	case KindBinary:
		return "binary"
	case KindSystemBinary:
		return "sysbinary"
	default:
		return "unknown"
	}
}

// Dependency is a typed, string-valued capability a package requires.
type Dependency struct {
	Kind  DependencyKind
	Value string
}

// Provider is a typed, string-valued capability a package declares.
type Provider struct {
	Kind  DependencyKind
	Value string
}

// Package is the decoded identity of a .stone file: the Meta payload plus
// the hash of the container it came from.
type Package struct {
	Hash          Hash
	Name          string
	Architecture  string
	Version       string
	SourceRelease int64
	BuildRelease  int64
	Summary       string
	Description   string
	Homepage      string
	SourceID      string
	URI           string
	Size          int64

	// DownloadHash is the hash a repository catalog advertises for the
	// .stone file itself, verified against the fetched bytes before the
	// container is opened. It is distinct from Hash, the package's own
	// content identity, and is zero for locally-installed packages.
	DownloadHash Hash

	Licenses      []string
	Depends       []Dependency
	Provides      []Provider
	Conflicts     []Provider

	// RepoName and RepoPriority are populated by the metadata DB when a
	// package came from a configured repository rather than a locally
	// installed stone; zero value means "locally installed".
	RepoName     string
	RepoPriority int
}

// Less orders two candidates for the same provider expression per
// spec.md §4.4 step 2: highest source_release, then highest build_release,
// then repository priority, then lexicographic name.
func (p *Package) Less(other *Package) bool {
	if p.SourceRelease != other.SourceRelease {
		return p.SourceRelease > other.SourceRelease
	}
	if p.BuildRelease != other.BuildRelease {
		return p.BuildRelease > other.BuildRelease
	}
	if p.RepoPriority != other.RepoPriority {
		return p.RepoPriority > other.RepoPriority
	}
	return p.Name < other.Name
}

// EntryType enumerates the filesystem node kinds a Layout record can carry.
type EntryType uint8

const (
	EntryRegular EntryType = iota
	EntrySymlink
	EntryDirectory
	EntryCharDevice
	EntryBlockDevice
	EntryFIFO
	EntrySocket
)

// LayoutEntry is one filesystem node a package installs, per spec.md §3.2's
// Layout payload and §4.3's layout table.
type LayoutEntry struct {
	ID        int64
	PackageID Hash
	UID       uint32
	GID       uint32
	Mode      uint32
	Tag       uint32
	Type      EntryType

	// Path is the node's full location relative to usr/ for every entry
	// type (e.g. "bin/bash"); for symlinks it is the link's own path.
	Path string

	// ContentHash is populated only for EntryRegular; it names the blob
	// this node hardlinks from the hash store.
	ContentHash Hash

	// SymlinkTarget is populated only for EntrySymlink.
	SymlinkTarget string
}

// TransactionKind labels why a State exists.
type TransactionKind string

const (
	StateKindTransaction TransactionKind = "transaction"
	StateKindRollback    TransactionKind = "rollback"
)

// Selection is one package's membership in a State: explicit selections
// were asked for by name; automatic selections were pulled in as
// dependencies.
type Selection struct {
	PackageHash Hash
	Explicit    bool
	Reason      string
}

// State is an immutable, monotonically numbered root snapshot, per
// spec.md §3.4.
type State struct {
	ID          int64
	Kind        TransactionKind
	Created     time.Time
	Summary     string
	Description string
	Selections  []Selection
}

// PackageHashes returns the set of package hashes selected by s.
func (s *State) PackageHashes() []Hash {
	out := make([]Hash, len(s.Selections))
	for i, sel := range s.Selections {
		out[i] = sel.PackageHash
	}
	return out
}
