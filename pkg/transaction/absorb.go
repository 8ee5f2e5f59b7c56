package transaction

import (
	"context"
	"fmt"
	"io"

	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/trigger"
	"github.com/mossforge/moss/pkg/types"
)

// absorbed is the result of ingesting one package's .stone file: its
// layout rows (for staging and for the Layout DB) and any triggers it
// declares.
type absorbed struct {
	pkg      *types.Package
	entries  []types.LayoutEntry
	triggers []trigger.Trigger
}

// absorbPackage fetches pkg's .stone file (unless its layout is already
// known) and absorbs its Content payload into the blob store slice by
// slice against the Index payload, per spec.md §4.5 step 2.
func (e *Engine) absorbPackage(ctx context.Context, pkg *types.Package) (*absorbed, error) {
	existing, err := e.layout.EntriesFor(pkg.Hash)
	if err != nil {
		return nil, fmt.Errorf("transaction: check existing layout for %s: %w", pkg.Name, err)
	}
	if len(existing) > 0 {
		return &absorbed{pkg: pkg, entries: existing}, nil
	}

	if pkg.URI == "" {
		return nil, fmt.Errorf("transaction: %s has no layout and no fetch URI", pkg.Name)
	}

	f, err := e.fetcher.FetchStone(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("transaction: fetch %s: %w", pkg.Name, err)
	}
	defer f.Close()

	r, err := stone.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("transaction: decode %s: %w", pkg.Name, err)
	}

	var layoutRecords []stone.LayoutRecord
	var indexRecords []stone.IndexRecord
	var triggers []trigger.Trigger
	var contentPayload *stone.PayloadReader

	for {
		payload, err := r.NextPayload()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transaction: walk payloads for %s: %w", pkg.Name, err)
		}

		switch payload.Kind() {
		case stone.KindLayout:
			for {
				rec, err := payload.NextRecord()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("transaction: decode layout for %s: %w", pkg.Name, err)
				}
				layoutRecords = append(layoutRecords, *rec.Layout)
			}
		case stone.KindIndex:
			for {
				rec, err := payload.NextRecord()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("transaction: decode index for %s: %w", pkg.Name, err)
				}
				indexRecords = append(indexRecords, *rec.Index)
			}
		case stone.KindAttributes:
			for {
				rec, err := payload.NextRecord()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("transaction: decode attributes for %s: %w", pkg.Name, err)
				}
				if t, ok := decodeTrigger(pkg.Hash, *rec.Attribute); ok {
					triggers = append(triggers, t)
				}
			}
		case stone.KindContent:
			contentPayload = payload
		}
	}

	if contentPayload != nil {
		if err := e.absorbContent(contentPayload, indexRecords, pkg); err != nil {
			return nil, err
		}
	}

	entries := make([]types.LayoutEntry, len(layoutRecords))
	for i, rec := range layoutRecords {
		entries[i] = types.LayoutEntry{
			PackageID:     pkg.Hash,
			UID:           rec.UID,
			GID:           rec.GID,
			Mode:          rec.Mode,
			Tag:           rec.Tag,
			Type:          rec.Type,
			Path:          rec.Path,
			ContentHash:   rec.ContentHash,
			SymlinkTarget: rec.SymlinkTarget,
		}
	}

	if err := e.layout.AddPackage(pkg.Hash, entries); err != nil {
		return nil, fmt.Errorf("transaction: persist layout for %s: %w", pkg.Name, err)
	}
	if err := e.meta.UpsertPackage(pkg); err != nil {
		return nil, fmt.Errorf("transaction: persist metadata for %s: %w", pkg.Name, err)
	}

	return &absorbed{pkg: pkg, entries: entries, triggers: triggers}, nil
}

// absorbContent streams a package's Content payload and, for each Index
// record in order, slices exactly that many decompressed bytes into the
// blob store under the digest the Index promised.
func (e *Engine) absorbContent(payload *stone.PayloadReader, index []stone.IndexRecord, pkg *types.Package) error {
	content, _, err := payload.ReadContent()
	if err != nil {
		return fmt.Errorf("transaction: open content for %s: %w", pkg.Name, err)
	}
	defer content.Close()

	for _, rec := range index {
		size := int64(rec.End - rec.Start)
		slice := io.LimitReader(content, size)
		if err := e.store.Absorb(slice, rec.Digest); err != nil {
			return fmt.Errorf("transaction: absorb slice of %s: %w", pkg.Name, err)
		}
	}

	// The index's ranges only ever exhaust the LimitReaders wrapping
	// content, never content itself: force one more Read so its running
	// checksum finalizes against the real EOF.
	var drain [1]byte
	if n, err := content.Read(drain[:]); err != io.EOF || n != 0 {
		return fmt.Errorf("transaction: content payload for %s longer than its index", pkg.Name)
	}

	if !content.IsChecksumValid() {
		return fmt.Errorf("transaction: %w: content checksum for %s", stone.ErrChecksumMismatch, pkg.Name)
	}
	return nil
}

// decodeTrigger interprets an Attributes record with key "trigger" as a
// NUL-separated program followed by its arguments, the convention moss's
// packaging tool writes per-package trigger declarations under.
func decodeTrigger(pkgHash types.Hash, rec stone.AttributeRecord) (trigger.Trigger, bool) {
	if rec.Key != "trigger" || len(rec.Value) == 0 {
		return trigger.Trigger{}, false
	}
	fields := splitNUL(rec.Value)
	if len(fields) == 0 {
		return trigger.Trigger{}, false
	}
	return trigger.Trigger{Package: pkgHash, Program: fields[0], Args: fields[1:]}, true
}

func splitNUL(b []byte) []string {
	var out []string
	start := 0
	for i, c := range b {
		if c == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	out = append(out, string(b[start:]))
	return out
}
