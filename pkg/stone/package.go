package stone

import (
	"io"

	"github.com/mossforge/moss/pkg/types"
)

// DecodePackage drains a Meta payload into a types.Package. It does not set
// Hash: a package's identity hash is the blake3 digest of the .stone file
// itself (pkg/hashstore.HashReader), computed by the caller from the
// stream this Reader was constructed over, not carried inside the Meta
// payload.
func DecodePackage(p *PayloadReader) (*types.Package, error) {
	if p.Kind() != KindMeta {
		return nil, &CodecError{Err: ErrUnknownRecordTag, PayloadKind: p.Kind(), PayloadIdx: p.idx}
	}

	pkg := &types.Package{}
	for {
		rec, err := p.NextRecord()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		applyMetaRecord(pkg, *rec.Meta)
	}
	return pkg, nil
}

func applyMetaRecord(pkg *types.Package, rec MetaRecord) {
	switch rec.Tag {
	case TagName:
		pkg.Name = rec.Value.(string)
	case TagArchitecture:
		pkg.Architecture = rec.Value.(string)
	case TagVersion:
		pkg.Version = rec.Value.(string)
	case TagSummary:
		pkg.Summary = rec.Value.(string)
	case TagDescription:
		pkg.Description = rec.Value.(string)
	case TagHomepage:
		pkg.Homepage = rec.Value.(string)
	case TagSourceID:
		pkg.SourceID = rec.Value.(string)
	case TagDepends:
		pkg.Depends = append(pkg.Depends, rec.Value.(types.Dependency))
	case TagProvides:
		pkg.Provides = append(pkg.Provides, rec.Value.(types.Provider))
	case TagConflicts:
		pkg.Conflicts = append(pkg.Conflicts, rec.Value.(types.Provider))
	case TagRelease:
		pkg.SourceRelease = int64(rec.Value.(uint64))
	case TagBuildRelease:
		pkg.BuildRelease = int64(rec.Value.(uint64))
	case TagLicense:
		pkg.Licenses = append(pkg.Licenses, rec.Value.(string))
	case TagPackageURI:
		pkg.URI = rec.Value.(string)
	case TagPackageHash:
		pkg.DownloadHash = types.Hash([]byte(rec.Value.(string)))
	case TagPackageSize:
		pkg.Size = int64(rec.Value.(uint64))
	}
	// TagBuildDepends, TagSourceURI, TagSourcePath, TagSourceRef describe
	// build-time provenance the installed-package model doesn't surface;
	// moss records them nowhere today and ignores them here.
}

// EncodePackage renders pkg's catalog-relevant fields as Meta records, the
// inverse of DecodePackage, for writing a repository index entry or a
// rebuilt package Meta payload.
func EncodePackage(pkg *types.Package) []MetaRecord {
	var recs []MetaRecord
	recs = append(recs,
		MetaRecord{Tag: TagName, Primitive: PrimString, Value: pkg.Name},
		MetaRecord{Tag: TagArchitecture, Primitive: PrimString, Value: pkg.Architecture},
		MetaRecord{Tag: TagVersion, Primitive: PrimString, Value: pkg.Version},
		MetaRecord{Tag: TagSummary, Primitive: PrimString, Value: pkg.Summary},
		MetaRecord{Tag: TagDescription, Primitive: PrimString, Value: pkg.Description},
		MetaRecord{Tag: TagHomepage, Primitive: PrimString, Value: pkg.Homepage},
		MetaRecord{Tag: TagSourceID, Primitive: PrimString, Value: pkg.SourceID},
		MetaRecord{Tag: TagRelease, Primitive: PrimUint64, Value: uint64(pkg.SourceRelease)},
		MetaRecord{Tag: TagBuildRelease, Primitive: PrimUint64, Value: uint64(pkg.BuildRelease)},
	)
	if pkg.URI != "" {
		recs = append(recs, MetaRecord{Tag: TagPackageURI, Primitive: PrimString, Value: pkg.URI})
	}
	if !pkg.DownloadHash.IsZero() {
		recs = append(recs, MetaRecord{Tag: TagPackageHash, Primitive: PrimString, Value: string(pkg.DownloadHash[:])})
	}
	if pkg.Size != 0 {
		recs = append(recs, MetaRecord{Tag: TagPackageSize, Primitive: PrimUint64, Value: uint64(pkg.Size)})
	}
	for _, lic := range pkg.Licenses {
		recs = append(recs, MetaRecord{Tag: TagLicense, Primitive: PrimString, Value: lic})
	}
	for _, dep := range pkg.Depends {
		recs = append(recs, MetaRecord{Tag: TagDepends, Primitive: PrimDependency, Value: dep})
	}
	for _, prov := range pkg.Provides {
		recs = append(recs, MetaRecord{Tag: TagProvides, Primitive: PrimProvider, Value: prov})
	}
	for _, conf := range pkg.Conflicts {
		recs = append(recs, MetaRecord{Tag: TagConflicts, Primitive: PrimProvider, Value: conf})
	}
	return recs
}
