package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <stone>",
	Short: "print a .stone file's metadata and layout without installing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		r, err := stone.NewReader(f)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		var pkg *types.Package
		var layoutCount int
		for {
			payload, err := r.NextPayload()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("walk payloads: %w", err)
			}
			switch payload.Kind() {
			case stone.KindMeta:
				pkg, err = stone.DecodePackage(payload)
				if err != nil {
					return fmt.Errorf("decode meta: %w", err)
				}
			case stone.KindLayout:
				for {
					_, err := payload.NextRecord()
					if err == io.EOF {
						break
					}
					if err != nil {
						return fmt.Errorf("decode layout: %w", err)
					}
					layoutCount++
				}
			}
		}

		if pkg == nil {
			return fmt.Errorf("inspect: %s has no meta payload", args[0])
		}

		fmt.Printf("name:          %s\n", pkg.Name)
		fmt.Printf("version:       %s-%d (build %d)\n", pkg.Version, pkg.SourceRelease, pkg.BuildRelease)
		fmt.Printf("architecture:  %s\n", pkg.Architecture)
		if pkg.Summary != "" {
			fmt.Printf("summary:       %s\n", pkg.Summary)
		}
		fmt.Printf("depends:       %d\n", len(pkg.Depends))
		fmt.Printf("provides:      %d\n", len(pkg.Provides))
		fmt.Printf("layout entries: %d\n", layoutCount)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <stone>",
	Short: "extract a .stone file's contents into the current directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("output")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		r, err := stone.NewReader(f)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		var layoutRecs []stone.LayoutRecord
		var indexRecs []stone.IndexRecord
		var contentPayload *stone.PayloadReader
		for {
			payload, err := r.NextPayload()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("walk payloads: %w", err)
			}
			switch payload.Kind() {
			case stone.KindLayout:
				for {
					rec, err := payload.NextRecord()
					if err == io.EOF {
						break
					}
					if err != nil {
						return fmt.Errorf("decode layout: %w", err)
					}
					layoutRecs = append(layoutRecs, *rec.Layout)
				}
			case stone.KindIndex:
				for {
					rec, err := payload.NextRecord()
					if err == io.EOF {
						break
					}
					if err != nil {
						return fmt.Errorf("decode index: %w", err)
					}
					indexRecs = append(indexRecs, *rec.Index)
				}
			case stone.KindContent:
				contentPayload = payload
			}
		}

		if err := extractLayout(dest, layoutRecs); err != nil {
			return err
		}
		if contentPayload != nil {
			if err := extractContent(dest, contentPayload, indexRecs, layoutRecs); err != nil {
				return err
			}
		}
		fmt.Printf("extracted %d entries to %s\n", len(layoutRecs), dest)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringP("output", "o", ".", "directory to extract into")
}

// extractLayout creates every directory and symlink named by recs. Regular
// files are left to extractContent, which streams their bytes.
func extractLayout(dest string, recs []stone.LayoutRecord) error {
	for _, rec := range recs {
		target := filepath.Join(dest, rec.Path)
		switch rec.Type {
		case types.EntryDirectory:
			if err := os.MkdirAll(target, os.FileMode(rec.Mode&0o7777)); err != nil {
				return fmt.Errorf("mkdir %s: %w", rec.Path, err)
			}
		case types.EntryRegular:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("mkdir parent of %s: %w", rec.Path, err)
			}
		case types.EntrySymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("mkdir parent of %s: %w", rec.Path, err)
			}
			if err := unix.Symlinkat(rec.SymlinkTarget, unix.AT_FDCWD, target); err != nil {
				return fmt.Errorf("symlink %s: %w", rec.Path, err)
			}
		}
	}
	return nil
}

// extractContent streams the Content payload slice by slice against the
// Index, writing each slice to every regular-file path that declared a
// matching content hash.
func extractContent(dest string, payload *stone.PayloadReader, index []stone.IndexRecord, layoutRecs []stone.LayoutRecord) error {
	pathsByDigest := map[types.Hash][]string{}
	for _, rec := range layoutRecs {
		if rec.Type == types.EntryRegular {
			pathsByDigest[rec.ContentHash] = append(pathsByDigest[rec.ContentHash], rec.Path)
		}
	}

	content, _, err := payload.ReadContent()
	if err != nil {
		return fmt.Errorf("open content: %w", err)
	}
	defer content.Close()

	for _, rec := range index {
		slice := io.LimitReader(content, int64(rec.End-rec.Start))
		paths := pathsByDigest[rec.Digest]
		if len(paths) == 0 {
			io.Copy(io.Discard, slice)
			continue
		}

		first := filepath.Join(dest, paths[0])
		out, err := os.OpenFile(first, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("create %s: %w", paths[0], err)
		}
		if _, err := io.Copy(out, slice); err != nil {
			out.Close()
			return fmt.Errorf("write %s: %w", paths[0], err)
		}
		out.Close()

		for _, extra := range paths[1:] {
			if err := copyFile(first, filepath.Join(dest, extra)); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
