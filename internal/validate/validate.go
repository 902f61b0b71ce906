// Package validate runs the cheap local checks of an installed instance.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/slok/packlaunch/internal/log"
	"github.com/slok/packlaunch/internal/model"
)

// DefaultRequiredDirs are the directories every launchable instance has.
var DefaultRequiredDirs = []string{"mods", "config", "libraries", "versions"}

const defaultConcurrency = 4

// ValidatorConfig is the configuration for the lightweight validator.
type ValidatorConfig struct {
	RequiredDirs []string
	Concurrency  int
	Logger       log.Logger
}

func (c *ValidatorConfig) defaults() error {
	if len(c.RequiredDirs) == 0 {
		c.RequiredDirs = DefaultRequiredDirs
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "validate.Validator"})
	return nil
}

// Validator checks the required directories of an instance exist and have content.
// It never touches the network.
type Validator struct {
	dirs        []string
	concurrency int
	logger      log.Logger
}

// NewValidator creates a new lightweight validator.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Validator{
		dirs:        cfg.RequiredDirs,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}, nil
}

// Result is the outcome of a lightweight validation.
type Result struct {
	Missing []string
	Empty   []string
	Stats   model.VerificationStats
}

// OK returns true when every required directory is present with content.
func (r Result) OK() bool { return len(r.Missing) == 0 && len(r.Empty) == 0 }

// Err returns the validation failure as an error, nil if the result is OK.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("missing directories %v, empty directories %v: %w", r.Missing, r.Empty, model.ErrNotValid)
}

// Validate checks the instance directory. Progress is called after every checked directory.
func (v *Validator) Validate(ctx context.Context, dir string, progress func(model.VerificationStats)) (Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Result{}, fmt.Errorf("could not stat instance directory: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%s is not a directory: %w", dir, model.ErrNotValid)
	}

	var (
		mu  sync.Mutex
		res = Result{Stats: model.VerificationStats{TotalFiles: len(v.dirs)}}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, name := range v.dirs {
		name := name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			exists, empty, err := checkDir(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("could not check %q: %w", name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			res.Stats.CheckedFiles++
			switch {
			case !exists:
				res.Missing = append(res.Missing, name)
				res.Stats.MissingFiles++
			case empty:
				res.Empty = append(res.Empty, name)
				res.Stats.CorruptedFiles++
			}
			if progress != nil {
				progress(res.Stats)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	sort.Strings(res.Missing)
	sort.Strings(res.Empty)
	if !res.OK() {
		v.logger.Warningf("instance at %s is not valid: %d missing, %d empty", dir, len(res.Missing), len(res.Empty))
	}

	return res, nil
}

func checkDir(path string) (exists, empty bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, false, err
	}
	if !info.IsDir() {
		return false, false, nil
	}

	names, err := f.Readdirnames(1)
	if err != nil && !errors.Is(err, io.EOF) {
		return true, false, err
	}
	return true, len(names) == 0, nil
}
