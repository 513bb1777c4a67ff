package antispam

import (
	"errors"
	"math"
	"os"
	"sort"
	"sync"
)

const (
	// Threshold is the score above which a message is considered spam
	Threshold = 0.9

	initRating   = 0.4  // rating of unknown tokens, slightly hammy
	spamRating   = 0.99 // token seen in spam only
	hamRating    = 0.01 // token seen in ham only
	minRating    = 0.01 // floor for tokens seen in both classes
	maxRatings   = 20   // longer rating lists reduced to the most extreme ones
	extremeCount = 10   // number of lowest and highest ratings kept after reduction
)

// Detector is a naive-bayes spam detector over a single Model. Thread-safe.
type Detector struct {
	model *Model
	lock  sync.RWMutex
}

// Rating is a spam rating of a single token
type Rating struct {
	Token  string  `json:"token"`
	Rating float64 `json:"rating"`
}

// NewDetector makes a detector bound to the model file at path. Empty path makes an in-memory
// detector. Missing file is created empty and the detector starts with an empty model,
// existing non-empty file is loaded.
func NewDetector(path string) (*Detector, error) {
	m := NewModel()
	if path == "" {
		return NewDetectorWithModel(m), nil
	}

	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = touch(path); err != nil {
			return nil, err
		}
		m.path = path
	case err != nil:
		return nil, err
	case fi.Size() == 0:
		m.path = path
	default:
		if err = m.Load(path); err != nil {
			return nil, err
		}
	}
	return NewDetectorWithModel(m), nil
}

// NewDetectorWithModel makes a detector owning the given model
func NewDetectorWithModel(m *Model) *Detector {
	if m == nil {
		m = NewModel()
	}
	if m.Tokens == nil {
		m.Tokens = map[string]Counts{}
	}
	return &Detector{model: m}
}

// Train updates the model with the message. Totals are incremented once per call,
// token counts once per token occurrence.
func (d *Detector) Train(msg string, isSpam bool) {
	tokens := Tokenize(msg)

	d.lock.Lock()
	defer d.lock.Unlock()

	if isSpam {
		d.model.SpamTotal++
	} else {
		d.model.HamTotal++
	}

	for _, token := range tokens {
		c := d.model.Tokens[token]
		if isSpam {
			c.Spam++
		} else {
			c.Ham++
		}
		d.model.Tokens[token] = c
	}
}

// Score returns spam probability of the message, 0..1. Message without tokens scores 0.
func (d *Detector) Score(msg string) float64 {
	ratings := d.ratings(Tokenize(msg))
	if len(ratings) == 0 {
		return 0
	}

	if len(ratings) > maxRatings {
		sort.Float64s(ratings)
		ratings = append(ratings[:extremeCount:extremeCount], ratings[len(ratings)-extremeCount:]...)
	}
	return combine(ratings)
}

// IsSpam checks if the message score is above Threshold
func (d *Detector) IsSpam(msg string) bool {
	return d.Score(msg) > Threshold
}

// Explain returns per-token ratings of the message, in token order
func (d *Detector) Explain(msg string) []Rating {
	tokens := Tokenize(msg)
	ratings := d.ratings(tokens)
	res := make([]Rating, len(tokens))
	for i, t := range tokens {
		res[i] = Rating{Token: t, Rating: ratings[i]}
	}
	return res
}

// Save writes the model to the path, or to the remembered one if path is empty
func (d *Detector) Save(path string) error {
	d.lock.Lock() // save updates the remembered path
	defer d.lock.Unlock()
	return d.model.Save(path)
}

// Load replaces the model with the one read from the path
func (d *Detector) Load(path string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.model.Load(path)
}

// Snapshot returns a deep copy of the current model
func (d *Detector) Snapshot() *Model {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.model.Clone()
}

// Replace swaps the current model for the given one. Remembered path of the current model is
// kept if the new one has none.
func (d *Detector) Replace(m *Model) {
	if m == nil {
		m = NewModel()
	}
	if m.Tokens == nil {
		m.Tokens = map[string]Counts{}
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if m.path == "" {
		m.path = d.model.path
	}
	d.model = m
}

// Stats returns model totals and the number of distinct tokens
func (d *Detector) Stats() Stats {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.model.Stats()
}

// ratings returns a rating for each token, in the same order
func (d *Detector) ratings(tokens []string) []float64 {
	d.lock.RLock()
	defer d.lock.RUnlock()

	res := make([]float64, 0, len(tokens))
	for _, t := range tokens {
		res = append(res, d.rating(t))
	}
	return res
}

// rating calculates spam rating of a single token, caller holds the lock
func (d *Detector) rating(token string) float64 {
	c, ok := d.model.Tokens[token]
	if !ok || (c.Ham == 0 && c.Spam == 0) {
		return initRating
	}

	switch {
	case c.Spam > 0 && c.Ham == 0:
		return spamRating
	case c.Spam == 0 && c.Ham > 0:
		return hamRating
	case d.model.SpamTotal > 0 && d.model.HamTotal > 0:
		hamProb := float64(c.Ham) / float64(d.model.HamTotal)
		spamProb := float64(c.Spam) / float64(d.model.SpamTotal)
		return math.Max(spamProb/(hamProb+spamProb), minRating)
	}
	return initRating
}

// combine merges token ratings into a single probability, product/(product+alt_product).
// Plain products keep results identical to existing models; log-odds used only if both underflow.
func combine(ratings []float64) float64 {
	product, altProduct := 1.0, 1.0
	for _, r := range ratings {
		product *= r
		altProduct *= 1 - r
	}
	if sum := product + altProduct; sum > 0 {
		return product / sum
	}

	var logOdds float64
	for _, r := range ratings {
		logOdds += math.Log(r) - math.Log1p(-r)
	}
	switch {
	case math.IsNaN(logOdds):
		return 0.5
	case logOdds > 0:
		return 1 / (1 + math.Exp(-logOdds))
	default:
		e := math.Exp(logOdds)
		return e / (1 + e)
	}
}
