package repo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/mossforge/moss/pkg/hashstore"
	"github.com/mossforge/moss/pkg/metrics"
	"github.com/mossforge/moss/pkg/stone"
	"github.com/mossforge/moss/pkg/types"
)

// CatalogWriter is the metadata database write path the client populates
// from a repository's index.
type CatalogWriter interface {
	UpsertPackage(pkg *types.Package) error
}

// FetchedStone is a downloaded, verified .stone file ready for
// stone.NewReader. Close releases any backing temp file.
type FetchedStone interface {
	io.ReadSeeker
	io.Closer
}

// Client fetches repository indexes and packages over HTTP, retrying
// transient failures with bounded exponential backoff.
type Client struct {
	cache   *Cache
	catalog CatalogWriter
	http    *retryablehttp.Client
	logger  zerolog.Logger
}

// New returns a Client backed by cache for repository configuration and
// index caching, writing discovered packages to catalog.
func New(cache *Cache, catalog CatalogWriter, logger zerolog.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 4
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 10 * time.Second
	hc.Logger = zerologAdapter{logger: logger}
	return &Client{cache: cache, catalog: catalog, http: hc, logger: logger}
}

// Sync fetches repo's stone.index and ingests every catalog entry into the
// metadata database. When an ETag is cached the request is conditional
// (If-None-Match); on 304 Not Modified the cached index bytes are
// ingested instead of a new download.
func (c *Client) Sync(ctx context.Context, repoName string) error {
	cfg, ok, err := c.cache.GetRepo(repoName)
	if err != nil {
		return fmt.Errorf("repo: sync %s: %w", repoName, err)
	}
	if !ok {
		return fmt.Errorf("repo: unknown repository %q", repoName)
	}

	cached, hasCached, err := c.cache.loadIndex(repoName)
	if err != nil {
		return fmt.Errorf("repo: load index cache for %s: %w", repoName, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, cfg.URL+"/stone.index", nil)
	if err != nil {
		return fmt.Errorf("repo: build request for %s: %w", repoName, err)
	}
	if hasCached && cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.RepoFetchDuration, repoName)
	if err != nil {
		metrics.RepoFetchErrors.WithLabelValues(repoName, "transient").Inc()
		return fmt.Errorf("repo: fetch index for %s: %w", repoName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("repo", repoName).Msg("index unchanged")
		return c.ingest(cfg, cached.Raw)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RepoFetchErrors.WithLabelValues(repoName, "transient").Inc()
		return fmt.Errorf("repo: fetch index for %s: unexpected status %d", repoName, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("repo: read index body for %s: %w", repoName, err)
	}

	if err := c.ingest(cfg, raw); err != nil {
		metrics.RepoFetchErrors.WithLabelValues(repoName, "integrity").Inc()
		return err
	}

	return c.cache.saveIndex(repoName, indexCacheEntry{
		ETag:      resp.Header.Get("ETag"),
		FetchedAt: time.Now().Unix(),
		Raw:       raw,
	})
}

// ingest decodes a stone.index's catalog entries and upserts them.
func (c *Client) ingest(cfg Config, raw []byte) error {
	r, err := stone.NewReader(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("repo: decode index for %s: %w", cfg.Name, err)
	}
	if r.HeaderV1().FileType != stone.FileTypeRepository {
		return fmt.Errorf("repo: index for %s is not a repository stone", cfg.Name)
	}

	for {
		payload, err := r.NextPayload()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("repo: walk index payloads for %s: %w", cfg.Name, err)
		}
		if payload.Kind() != stone.KindMeta {
			continue
		}
		pkg, err := stone.DecodePackage(payload)
		if err != nil {
			return fmt.Errorf("repo: decode catalog entry for %s: %w", cfg.Name, err)
		}
		// A repository-sourced package's identity hash is the hash it
		// publishes for its own .stone file: the two coincide once
		// fetched, so there is no separate "catalog identity" to invent.
		pkg.Hash = pkg.DownloadHash
		pkg.RepoName = cfg.Name
		pkg.RepoPriority = cfg.Priority
		if err := c.catalog.UpsertPackage(pkg); err != nil {
			return fmt.Errorf("repo: upsert %s from %s: %w", pkg.Name, cfg.Name, err)
		}
	}
	return nil
}

// FetchStone downloads pkg's .stone file to a temporary file and verifies
// its bytes hash to pkg.DownloadHash before handing it back seeked to the
// start, ready for stone.NewReader. The caller owns the returned file and
// must Close it; Close also removes the temp file.
func (c *Client) FetchStone(ctx context.Context, pkg *types.Package) (FetchedStone, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pkg.URI, nil)
	if err != nil {
		return unlinkedFile{}, fmt.Errorf("repo: build request for %s: %w", pkg.Name, err)
	}

	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.RepoFetchDuration, pkg.RepoName)
	if err != nil {
		metrics.RepoFetchErrors.WithLabelValues(pkg.RepoName, "transient").Inc()
		return unlinkedFile{}, fmt.Errorf("repo: fetch %s: %w", pkg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RepoFetchErrors.WithLabelValues(pkg.RepoName, "transient").Inc()
		return unlinkedFile{}, fmt.Errorf("repo: fetch %s: unexpected status %d", pkg.Name, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "moss-fetch-*.stone")
	if err != nil {
		return unlinkedFile{}, fmt.Errorf("repo: create temp file for %s: %w", pkg.Name, err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		cleanup()
		return unlinkedFile{}, fmt.Errorf("repo: download %s: %w", pkg.Name, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return unlinkedFile{}, fmt.Errorf("repo: seek downloaded %s: %w", pkg.Name, err)
	}

	got, err := hashstore.HashReader(tmp)
	if err != nil {
		cleanup()
		return unlinkedFile{}, fmt.Errorf("repo: hash downloaded %s: %w", pkg.Name, err)
	}
	if got != pkg.DownloadHash {
		cleanup()
		metrics.RepoFetchErrors.WithLabelValues(pkg.RepoName, "integrity").Inc()
		return unlinkedFile{}, &IntegrityError{
			Resource: pkg.Name,
			Expected: fmt.Sprintf("%x", pkg.DownloadHash[:]),
			Got:      fmt.Sprintf("%x", got[:]),
		}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return unlinkedFile{}, fmt.Errorf("repo: rewind downloaded %s: %w", pkg.Name, err)
	}
	return unlinkedFile{File: tmp}, nil
}

// unlinkedFile wraps an *os.File whose Close also removes the underlying
// path, so callers of FetchStone don't need to track the temp path
// separately.
type unlinkedFile struct {
	*os.File
}

func (f unlinkedFile) Close() error {
	path := f.File.Name()
	err := f.File.Close()
	os.Remove(path)
	return err
}
