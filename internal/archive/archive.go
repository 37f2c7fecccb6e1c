package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"govharvest/internal/config"
)

// ObjectStore hands the bulk archive off to external storage. Nil means
// the archive stays local only.
type ObjectStore interface {
	Put(ctx context.Context, key, localPath string) error
}

// Packager wraps every court tree into its own tar.gz inside a staging
// directory, bundles those into one bulk archive per category and
// removes the staging directory afterwards.
type Packager struct {
	Layout  config.Layout
	Workers int
	Store   ObjectStore
}

func (p *Packager) courtDirs() ([]string, error) {
	entries, err := os.ReadDir(p.Layout.CategoryDir())
	if err != nil {
		return nil, fmt.Errorf("reading category dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "errors" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dirs = append(dirs, filepath.Join(p.Layout.CategoryDir(), e.Name()))
	}
	return dirs, nil
}

// Pack builds the bulk archive and returns its path.
func (p *Packager) Pack(ctx context.Context) (string, error) {
	courts, err := p.courtDirs()
	if err != nil {
		return "", err
	}
	gzipDir := p.Layout.GzipDir()
	if err := os.MkdirAll(gzipDir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging dir: %w", err)
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan string)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dir := range jobs {
				dst := filepath.Join(gzipDir, filepath.Base(dir)+".tar.gz")
				if err := tarGzDir(dst, dir); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				log.Debug().Str("court", filepath.Base(dir)).Msg("court archived")
			}
		}()
	}
	for _, dir := range courts {
		jobs <- dir
	}
	close(jobs)
	wg.Wait()
	if firstErr != nil {
		return "", firstErr
	}

	bulkPath := p.Layout.BulkArchivePath()
	if err := tarGzFiles(bulkPath, gzipDir); err != nil {
		return "", err
	}
	if err := os.RemoveAll(gzipDir); err != nil {
		return "", fmt.Errorf("removing staging dir: %w", err)
	}
	log.Info().Str("path", bulkPath).Msg("bulk data packaged")

	if p.Store != nil {
		key := path.Join(p.Layout.Collection, p.Layout.Category, filepath.Base(bulkPath))
		if err := p.Store.Put(ctx, key, bulkPath); err != nil {
			return bulkPath, fmt.Errorf("handing off %s: %w", key, err)
		}
		log.Info().Str("key", key).Msg("bulk data handed off")
	}
	return bulkPath, nil
}

// tarGzDir archives a directory tree, keeping paths relative to the
// directory's parent so unpacking recreates the court folder.
func tarGzDir(dst, srcDir string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	base := filepath.Dir(srcDir)
	err = filepath.Walk(srcDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("archiving %s: %w", srcDir, err)
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

// tarGzFiles archives the immediate files of a directory under their
// base names.
func tarGzFiles(dst, srcDir string) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = e.Name()
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		in, err := os.Open(filepath.Join(srcDir, e.Name()))
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, in); err != nil {
			in.Close()
			return err
		}
		in.Close()
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}
