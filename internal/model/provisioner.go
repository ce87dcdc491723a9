package model

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/offline-transcriber/internal/recognizer"
)

// ModelLoadError is fatal: the server must not accept uploads without a model.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %q: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Loader opens a model directory.
type Loader func(path string) (recognizer.Model, error)

// Provisioner downloads the model bundle on first run and loads it.
type Provisioner struct {
	load    Loader
	client  *http.Client
	tempDir string
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provisioner) {
		p.client = c
	}
}

// WithTempDir sets where the archive is downloaded to.
func WithTempDir(dir string) Option {
	return func(p *Provisioner) {
		p.tempDir = dir
	}
}

// NewProvisioner creates a provisioner that opens models with load.
func NewProvisioner(load Loader, opts ...Option) *Provisioner {
	p := &Provisioner{
		load:   load,
		client: &http.Client{Timeout: 30 * time.Minute},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureModel makes sure expectedPath exists, fetching and unpacking the ZIP at
// sourceURL next to it if needed, then loads it. Nothing is retried.
func (p *Provisioner) EnsureModel(ctx context.Context, expectedPath, sourceURL string) (recognizer.Model, error) {
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		log.Info().Str("url", sourceURL).Msg("model not found locally, downloading")
		if err := p.fetch(ctx, sourceURL, filepath.Dir(expectedPath)); err != nil {
			return nil, &ModelLoadError{Path: expectedPath, Err: err}
		}
		log.Info().Str("path", expectedPath).Msg("model downloaded and extracted")
	} else if err != nil {
		return nil, &ModelLoadError{Path: expectedPath, Err: err}
	}

	if _, err := os.Stat(expectedPath); err != nil {
		return nil, &ModelLoadError{Path: expectedPath, Err: fmt.Errorf("model missing after extraction: %w", err)}
	}

	m, err := p.load(expectedPath)
	if err != nil {
		return nil, &ModelLoadError{Path: expectedPath, Err: err}
	}
	log.Info().Str("path", expectedPath).Msg("model loaded")
	return m, nil
}

func (p *Provisioner) fetch(ctx context.Context, sourceURL, destDir string) error {
	if p.tempDir != "" {
		if err := os.MkdirAll(p.tempDir, 0755); err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
	}
	archive, err := os.CreateTemp(p.tempDir, "model-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := archive.Name()
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", archivePath).Msg("failed to remove model archive")
		}
	}()

	err = p.download(ctx, sourceURL, archive)
	if closeErr := archive.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return extractZip(archivePath, destDir)
}

func (p *Provisioner) download(ctx context.Context, sourceURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download model: unexpected status %d", resp.StatusCode)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	log.Debug().Int64("bytes", n).Msg("model archive downloaded")
	return nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}
	for _, f := range r.File {
		if err := extractFile(f, root); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes %s", f.Name, root)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return dst.Close()
}
