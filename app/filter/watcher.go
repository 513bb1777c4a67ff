package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/umputun/antispam/lib/antispam"
)

// Watch reloads the model when the model file at path is rewritten by another process.
// Incomplete or broken content is ignored until the next write. Reload is skipped while
// the filter has unsaved training. Blocks until context is done.
func (f *Filter) Watch(ctx context.Context, path string) error {
	return watch(ctx, path, func(r io.Reader) error {
		if f.dirty.Load() {
			log.Printf("[DEBUG] skip reload of %s, model has unsaved changes", path)
			return nil
		}
		model := antispam.NewModel()
		if err := model.Decode(r); err != nil {
			return err
		}
		f.detector.Replace(model)
		log.Printf("[INFO] model reloaded from %s, %+v", path, model.Stats())
		return nil
	})
}

// watch starts watching file for changes and calls onDataChange callback
func watch(ctx context.Context, path string, onDataChange func(io.Reader) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err = watcher.Add(path); err != nil {
		return fmt.Errorf("failed to add %s to watcher: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] stopping watcher for %s, %v", path, ctx.Err())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			data, e := readFile(path)
			if e != nil {
				log.Printf("[WARN] failed to read updated file %s: %v", path, e)
				continue
			}
			if e = onDataChange(data); e != nil {
				log.Printf("[DEBUG] failed to load updated file %s: %v", path, e)
			}
		case e, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[WARN] watcher error: %v", e)
		}
	}
}

func readFile(path string) (io.Reader, error) {
	data, err := os.ReadFile(path) //nolint gosec // path is controlled by the app
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return bytes.NewReader(data), nil
}
