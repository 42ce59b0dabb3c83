package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// PathLister returns every file path currently referenced by a certificate
// record. Satisfied by certificates.Repository.
type PathLister interface {
	ListFilePaths(ctx context.Context) ([]string, error)
}

// minOrphanAge keeps the sweep from racing an in-flight batch: a file just
// written by a worker may not have its database row committed yet.
const minOrphanAge = time.Hour

// Cleaner removes rendered files from the output directory that no
// certificate row references. Dry-run mode reports what would be deleted
// without touching anything.
type Cleaner struct {
	dir    string
	paths  PathLister
	dryRun bool
	logger *zap.Logger
}

func NewCleaner(dir string, paths PathLister, dryRun bool, logger *zap.Logger) *Cleaner {
	return &Cleaner{dir: dir, paths: paths, dryRun: dryRun, logger: logger}
}

// Run executes one sweep. Errors on individual files are logged and do not
// stop the sweep.
func (c *Cleaner) Run(ctx context.Context) error {
	referenced, err := c.paths.ListFilePaths(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		known[filepath.Clean(p)] = struct{}{}
	}

	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var removed, kept int
	cutoff := time.Now().Add(-minOrphanAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Clean(filepath.Join(c.dir, entry.Name()))
		if _, ok := known[path]; ok {
			kept++
			continue
		}
		info, err := entry.Info()
		if err != nil {
			c.logger.Warn("stat failed during cleanup", zap.String("path", path), zap.Error(err))
			continue
		}
		if info.ModTime().After(cutoff) {
			kept++
			continue
		}

		if c.dryRun {
			c.logger.Info("orphan file (dry run, not removed)", zap.String("path", path))
			removed++
			continue
		}
		if err := os.Remove(path); err != nil {
			c.logger.Warn("orphan removal failed", zap.String("path", path), zap.Error(err))
			continue
		}
		c.logger.Info("orphan file removed", zap.String("path", path))
		removed++
	}

	c.logger.Info("cleanup sweep finished",
		zap.Int("orphans", removed),
		zap.Int("kept", kept),
		zap.Bool("dry_run", c.dryRun))
	return nil
}
