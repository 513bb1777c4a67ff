package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-pkgz/fileutils"

	"github.com/umputun/antispam/lib/antispam"
)

// ModelFile is a model store backed by a json file, in the same format antispam.Model uses.
// With backup enabled the previous file is copied to <path>.bak before each save.
type ModelFile struct {
	path   string
	backup bool
}

// NewModelFile makes a file store for the given path
func NewModelFile(path string, backup bool) *ModelFile {
	return &ModelFile{path: path, backup: backup}
}

// Path returns the model file location
func (f *ModelFile) Path() string { return f.path }

// Save writes the model to the file, keeping a backup of the previous version if requested
func (f *ModelFile) Save(_ context.Context, model *antispam.Model) error {
	if model == nil {
		return fmt.Errorf("model can't be nil")
	}
	if f.backup && fileutils.IsFile(f.path) {
		if err := fileutils.CopyFile(f.path, f.path+".bak"); err != nil {
			log.Printf("[WARN] can't backup %s: %v", f.path, err)
		}
	}
	return model.Clone().Save(f.path) // clone keeps the path of the caller's model untouched
}

// Load reads the model from the file. Missing or empty file makes an empty model.
func (f *ModelFile) Load(_ context.Context) (*antispam.Model, error) {
	fi, err := os.Stat(f.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && fi.Size() == 0) {
		return antispam.NewModel(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't access model file: %w", err)
	}

	res := antispam.NewModel()
	if err := res.Load(f.path); err != nil {
		return nil, err
	}
	return res, nil
}

// UpdatedAt returns the modification time of the file, zero time if there is no file yet
func (f *ModelFile) UpdatedAt(_ context.Context) (time.Time, error) {
	fi, err := os.Stat(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// String implements fmt.Stringer
func (f *ModelFile) String() string {
	return "model file " + f.path
}
