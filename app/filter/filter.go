// Package filter wraps antispam detector with persistence, training samples and periodic saving.
// It is the service layer used by both cli commands and http api.
package filter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/umputun/antispam/app/storage"
	"github.com/umputun/antispam/lib/antispam"
)

//go:generate moq --out mocks/model_store.go --pkg mocks --with-resets --skip-ensure . ModelStore
//go:generate moq --out mocks/sample_store.go --pkg mocks --with-resets --skip-ensure . SampleStore

// ErrNoSamples returned by Rebuild when filter has no sample store
var ErrNoSamples = errors.New("no samples store")

// ModelStore persists the model
type ModelStore interface {
	Load(ctx context.Context) (*antispam.Model, error)
	Save(ctx context.Context, model *antispam.Model) error
}

// SampleStore keeps raw training messages
type SampleStore interface {
	Add(ctx context.Context, t storage.SampleType, message string) error
	Iterator(ctx context.Context, t storage.SampleType) (iter.Seq[string], error)
}

// SpamLogger is called for every message detected as spam
type SpamLogger interface {
	Save(msg string, res Result)
}

// SpamLoggerFunc is a function adapter for SpamLogger
type SpamLoggerFunc func(msg string, res Result)

// Save calls the function
func (f SpamLoggerFunc) Save(msg string, res Result) { f(msg, res) }

// Filter checks messages for spam and trains the model
type Filter struct {
	Params
	detector *antispam.Detector
	dirty    atomic.Bool
	saveLock sync.Mutex // serializes saves to the store
}

// Params to create Filter. Store is required, the rest is optional.
type Params struct {
	Store      ModelStore
	Samples    SampleStore
	SpamLogger SpamLogger
}

// Result of a single check
type Result struct {
	Spam    bool              `json:"spam"`
	Score   float64           `json:"score"`
	Ratings []antispam.Rating `json:"ratings,omitempty"`
}

// LoadResult is a stats of corpus training
type LoadResult struct {
	SpamMessages int `json:"spam_messages"`
	HamMessages  int `json:"ham_messages"`
}

// Stats of the filter's model
type Stats struct {
	antispam.Stats
	Dirty bool `json:"dirty"`
}

// New makes a filter with the model loaded from the store
func New(ctx context.Context, params Params) (*Filter, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("model store is required")
	}
	res := &Filter{Params: params}
	model, err := params.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't load model: %w", err)
	}
	res.detector = antispam.NewDetectorWithModel(model)
	st := model.Stats()
	log.Printf("[INFO] model loaded from %v, spam: %d, ham: %d, tokens: %d", params.Store, st.SpamTotal, st.HamTotal, st.Tokens)
	return res, nil
}

// Check scores the message. Spam results reported to SpamLogger if set.
func (f *Filter) Check(msg string) Result {
	score := f.detector.Score(msg)
	res := Result{Spam: score > antispam.Threshold, Score: score, Ratings: f.detector.Explain(msg)}
	if res.Spam {
		log.Printf("[DEBUG] spam detected, score %.4f: %q", score, msg)
		if f.SpamLogger != nil {
			f.SpamLogger.Save(msg, res)
		}
	}
	return res
}

// Train trains the model with the message and records it to samples store if set.
// Model is marked dirty and saved by the next Save call.
func (f *Filter) Train(ctx context.Context, msg string, isSpam bool) error {
	f.detector.Train(msg, isSpam)
	f.dirty.Store(true)
	if f.Samples == nil || msg == "" {
		return nil
	}
	if err := f.Samples.Add(ctx, storage.SampleTypeOf(isSpam), msg); err != nil {
		return fmt.Errorf("can't add sample: %w", err)
	}
	return nil
}

// TrainCorpus trains the model with spam and ham corpora, one message per line. Empty lines are skipped.
// Read errors are collected, training continues with the remaining readers.
func (f *Filter) TrainCorpus(ctx context.Context, spam, ham []io.Reader) (LoadResult, error) {
	var res LoadResult
	errs := new(multierror.Error)

	train := func(readers []io.Reader, isSpam bool, count *int) {
		for _, r := range readers {
			for msg := range lines(r, func(err error) { errs = multierror.Append(errs, err) }) {
				if err := f.Train(ctx, msg, isSpam); err != nil {
					errs = multierror.Append(errs, err)
				}
				*count++
			}
		}
	}
	train(spam, true, &res.SpamMessages)
	train(ham, false, &res.HamMessages)

	log.Printf("[INFO] corpus loaded, spam: %d, ham: %d", res.SpamMessages, res.HamMessages)
	return res, errs.ErrorOrNil()
}

// Save writes the model to the store and resets dirty flag
func (f *Filter) Save(ctx context.Context) error {
	f.saveLock.Lock()
	defer f.saveLock.Unlock()

	f.dirty.Store(false)
	if err := f.Store.Save(ctx, f.detector.Snapshot()); err != nil {
		f.dirty.Store(true)
		return fmt.Errorf("can't save model: %w", err)
	}
	return nil
}

// Reload replaces the model with the one from the store. Unsaved training is lost.
func (f *Filter) Reload(ctx context.Context) error {
	model, err := f.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("can't reload model: %w", err)
	}
	f.detector.Replace(model)
	f.dirty.Store(false)
	log.Printf("[INFO] model reloaded, %+v", model.Stats())
	return nil
}

// Rebuild makes a fresh model from all stored samples and replaces the current one with it.
// The new model is marked dirty and not saved.
func (f *Filter) Rebuild(ctx context.Context) (antispam.Stats, error) {
	if f.Samples == nil {
		return antispam.Stats{}, ErrNoSamples
	}

	det := antispam.NewDetectorWithModel(nil)
	for _, t := range []storage.SampleType{storage.SampleTypeSpam, storage.SampleTypeHam} {
		msgs, err := f.Samples.Iterator(ctx, t)
		if err != nil {
			return antispam.Stats{}, fmt.Errorf("can't read %s samples: %w", t, err)
		}
		for msg := range msgs {
			det.Train(msg, t == storage.SampleTypeSpam)
		}
	}
	if err := ctx.Err(); err != nil {
		return antispam.Stats{}, fmt.Errorf("rebuild interrupted: %w", err)
	}

	model := det.Snapshot()
	f.detector.Replace(model)
	f.dirty.Store(true)
	log.Printf("[INFO] model rebuilt from samples, %+v", model.Stats())
	return model.Stats(), nil
}

// Model returns a copy of the current model
func (f *Filter) Model() *antispam.Model {
	return f.detector.Snapshot()
}

// Stats returns model stats
func (f *Filter) Stats() Stats {
	return Stats{Stats: f.detector.Stats(), Dirty: f.dirty.Load()}
}

// AutoSave saves the model every interval if it was changed since the last save.
// Blocks until context is done, makes the final save on exit.
func (f *Filter) AutoSave(ctx context.Context, interval time.Duration) {
	log.Printf("[DEBUG] auto-save model every %v", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if f.dirty.Load() {
				// parent context is done, final save gets its own
				saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := f.Save(saveCtx); err != nil {
					log.Printf("[WARN] final model save failed: %v", err)
				} else {
					log.Printf("[INFO] model saved on exit, %+v", f.detector.Stats())
				}
				cancel()
			}
			return
		case <-ticker.C:
			if !f.dirty.Load() {
				continue
			}
			if err := f.Save(ctx); err != nil {
				log.Printf("[WARN] model auto-save failed: %v", err)
				continue
			}
			log.Printf("[DEBUG] model auto-saved, %+v", f.detector.Stats())
		}
	}
}

// lines iterates over non-empty lines of the reader, read error reported with onErr
func lines(r io.Reader, onErr func(error)) iter.Seq[string] {
	return func(yield func(string) bool) {
		scanner := bufio.NewScanner(r)
		const maxLineSize = 1024 * 1024
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			onErr(fmt.Errorf("can't read corpus: %w", err))
		}
	}
}
