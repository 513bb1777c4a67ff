package antispam

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_Train(t *testing.T) {
	d := NewDetectorWithModel(nil)

	d.Train("spam spam eggs SPAM", true)
	m := d.Snapshot()
	assert.Equal(t, int64(1), m.SpamTotal)
	assert.Equal(t, int64(0), m.HamTotal)
	assert.Equal(t, Counts{Spam: 3}, m.Tokens["spam"])
	assert.Equal(t, Counts{Spam: 1}, m.Tokens["eggs"])

	d.Train("eggs and bacon", false)
	m = d.Snapshot()
	assert.Equal(t, int64(1), m.SpamTotal)
	assert.Equal(t, int64(1), m.HamTotal)
	assert.Equal(t, Counts{Ham: 1, Spam: 1}, m.Tokens["eggs"])
	assert.Equal(t, Counts{Ham: 1}, m.Tokens["and"])
	assert.Equal(t, Counts{Ham: 1}, m.Tokens["bacon"])
	assert.Len(t, m.Tokens, 4)

	t.Run("message without tokens still counted", func(t *testing.T) {
		d.Train("", true)
		d.Train("ok", false)
		assert.Equal(t, Stats{SpamTotal: 2, HamTotal: 2, Tokens: 4}, d.Stats())
	})

	t.Run("every key has a positive count", func(t *testing.T) {
		for k, c := range d.Snapshot().Tokens {
			assert.True(t, c.Ham > 0 || c.Spam > 0, "token %q", k)
		}
	})
}

func TestDetector_TrainMonotonic(t *testing.T) {
	d := NewDetectorWithModel(nil)
	d.Train("hello there, general kenobi", false)
	d.Train("win money now, money back", true)

	msg := "money money money for nothing"
	before := d.Snapshot()
	d.Train(msg, true)
	after := d.Snapshot()

	assert.Equal(t, before.SpamTotal+1, after.SpamTotal)
	assert.Equal(t, before.HamTotal, after.HamTotal)

	occurrences := map[string]int64{}
	for _, tok := range Tokenize(msg) {
		occurrences[tok]++
	}
	for tok, n := range occurrences {
		assert.Equal(t, before.Tokens[tok].Spam+n, after.Tokens[tok].Spam, "token %q", tok)
		assert.Equal(t, before.Tokens[tok].Ham, after.Tokens[tok].Ham, "token %q", tok)
	}
}

func TestDetector_Score(t *testing.T) {
	d := NewDetectorWithModel(nil)
	d.Train("buy cheap viagra now", true)
	d.Train("let us meet for lunch", false)

	tests := []struct {
		name string
		msg  string
		want float64
		spam bool
	}{
		{name: "spam tokens", msg: "buy viagra", want: 0.9998979800040808, spam: true},
		{name: "ham and unknown", msg: "lunch meeting", want: 0.006688963210702342, spam: false},
		{name: "empty", msg: "", want: 0, spam: false},
		{name: "only short words", msg: "a b c to be", want: 0, spam: false},
		{name: "even evidence", msg: "buy lunch", want: 0.4999999999999997, spam: false},
		{name: "single unknown", msg: "something", want: 0.4, spam: false},
		{name: "case insensitive", msg: "BUY VIAGRA", want: 0.9998979800040808, spam: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := d.Score(tt.msg)
			assert.InDelta(t, tt.want, score, 1e-12)
			assert.Equal(t, tt.spam, d.IsSpam(tt.msg))
			assert.Equal(t, score > Threshold, d.IsSpam(tt.msg))
		})
	}
}

func TestDetector_ScoreMixedEvidence(t *testing.T) {
	d := NewDetectorWithModel(nil)
	d.Train("buy cheap viagra now", true)
	d.Train("let us meet for lunch", false)
	d.Train("cheap lunch deals", true)
	d.Train("lunch at noon", false)

	ratings := d.Explain("cheap lunch")
	require.Len(t, ratings, 2)
	assert.Equal(t, Rating{Token: "cheap", Rating: 0.99}, ratings[0])
	assert.Equal(t, "lunch", ratings[1].Token)
	assert.InDelta(t, 1.0/3.0, ratings[1].Rating, 1e-12) // ham 2/2, spam 1/2

	assert.InDelta(t, 0.9801980198019802, d.Score("cheap lunch"), 1e-12)
	assert.InDelta(t, 0.9565217391304348, d.Score("lunch tomorrow with viagra"), 1e-12)
}

func TestDetector_RatingFloor(t *testing.T) {
	m := NewModel()
	m.SpamTotal, m.HamTotal = 1000, 1
	m.Tokens["rare"] = Counts{Ham: 1, Spam: 1} // spam_prob 0.001, ham_prob 1
	d := NewDetectorWithModel(m)

	ratings := d.Explain("rare")
	require.Len(t, ratings, 1)
	assert.InDelta(t, 0.01, ratings[0].Rating, 1e-15)
}

func TestDetector_RatingBranches(t *testing.T) {
	tests := []struct {
		name   string
		model  *Model
		rating float64
	}{
		{name: "unknown token", model: &Model{SpamTotal: 5, HamTotal: 5, Tokens: map[string]Counts{}}, rating: 0.4},
		{name: "zero counts", model: &Model{SpamTotal: 5, HamTotal: 5, Tokens: map[string]Counts{"token": {}}}, rating: 0.4},
		{name: "spam only, zero totals", model: &Model{Tokens: map[string]Counts{"token": {Spam: 1}}}, rating: 0.99},
		{name: "ham only, zero totals", model: &Model{Tokens: map[string]Counts{"token": {Ham: 7}}}, rating: 0.01},
		{name: "mixed, zero spam total", model: &Model{HamTotal: 3, Tokens: map[string]Counts{"token": {Ham: 1, Spam: 1}}}, rating: 0.4},
		{name: "mixed", model: &Model{SpamTotal: 2, HamTotal: 4, Tokens: map[string]Counts{"token": {Ham: 2, Spam: 1}}}, rating: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetectorWithModel(tt.model)
			ratings := d.Explain("token")
			require.Len(t, ratings, 1)
			assert.InDelta(t, tt.rating, ratings[0].Rating, 1e-12)
		})
	}
}

func TestDetector_SpamOnlyClamp(t *testing.T) {
	for _, totals := range [][2]int64{{1, 0}, {1, 1000}, {500, 3}} {
		m := NewModel()
		m.SpamTotal, m.HamTotal = totals[0], totals[1]
		m.Tokens["jackpot"] = Counts{Spam: 3}
		d := NewDetectorWithModel(m)
		assert.InDelta(t, 0.99, d.Score("jackpot"), 1e-12, "totals %v", totals)
		assert.True(t, d.IsSpam("jackpot"))
	}
}

func TestDetector_LongMessageReduction(t *testing.T) {
	d := NewDetectorWithModel(nil)
	d.Train("winner", true)
	d.Train("family", false)

	words := make([]string, 0, 27)
	for i := range 25 {
		words = append(words, fmt.Sprintf("unseen%c", 'a'+i))
	}
	words = append(words, "winner", "family")
	msg := strings.Join(words, " ")

	// reduced to 0.01, 0.99 and 18 unknown tokens rated 0.4
	reduced := 1 / (1 + math.Pow(1.5, 18))
	full := 1 / (1 + math.Pow(1.5, 25))

	score := d.Score(msg)
	assert.InDelta(t, 0.0006761819531905631, score, 1e-15)
	assert.InDelta(t, reduced, score, 1e-12)
	assert.Greater(t, math.Abs(score-full), 1e-4, "reduction should change the result")

	t.Run("twenty ratings not reduced", func(t *testing.T) {
		short := strings.Join(append(words[:18:18], "winner", "family"), " ")
		assert.InDelta(t, reduced, d.Score(short), 1e-12)
	})
}

func TestDetector_ScoreBounds(t *testing.T) {
	d := NewDetectorWithModel(nil)
	d.Train("free money click here now free free", true)
	d.Train("project meeting moved to thursday afternoon", false)
	d.Train("free lunch at the meeting", false)

	msgs := []string{
		"", "free", "meeting", "free meeting", "totally unrelated words here",
		strings.Repeat("free ", 200), strings.Repeat("meeting ", 200),
		strings.Repeat("free meeting unknown ", 100),
	}
	for _, msg := range msgs {
		score := d.Score(msg)
		assert.False(t, math.IsNaN(score), "score of %q", msg)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
		assert.Equal(t, score > Threshold, d.IsSpam(msg))
	}
}

func TestCombine(t *testing.T) {
	assert.InDelta(t, 0.5, combine([]float64{0.5}), 1e-15)
	assert.InDelta(t, 0.99, combine([]float64{0.99}), 1e-15)
	assert.InDelta(t, 0.4, combine([]float64{0.4, 0.5}), 1e-15)

	t.Run("underflow falls back to log-odds", func(t *testing.T) {
		ratings := make([]float64, 0, 700)
		for range 400 {
			ratings = append(ratings, 0.01)
		}
		for range 300 {
			ratings = append(ratings, 0.99)
		}
		res := combine(ratings)
		assert.False(t, math.IsNaN(res))
		assert.Less(t, res, 0.5)
		assert.GreaterOrEqual(t, res, 0.0)
	})
}

func TestDetector_Concurrent(t *testing.T) {
	d := NewDetectorWithModel(nil)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				d.Train(fmt.Sprintf("message number %d from worker %d", j, i), i%2 == 0)
				_ = d.Score("message from worker")
			}
		}()
	}
	wg.Wait()

	st := d.Stats()
	assert.Equal(t, int64(250), st.SpamTotal)
	assert.Equal(t, int64(250), st.HamTotal)
	assert.Equal(t, Counts{Ham: 250, Spam: 250}, d.Snapshot().Tokens["message"])
}

func TestNewDetector(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		d, err := NewDetector("")
		require.NoError(t, err)
		assert.Equal(t, Stats{}, d.Stats())
		assert.ErrorIs(t, d.Save(""), ErrNoPath)
	})

	t.Run("missing file created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		d, err := NewDetector(path)
		require.NoError(t, err)
		fi, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0), fi.Size())

		d.Train("hello world", false)
		require.NoError(t, d.Save(""))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `[0, 1, {"hello": [1, 0], "world": [1, 0]}]`, string(data))
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		d, err := NewDetector(path)
		require.NoError(t, err)
		assert.Equal(t, Stats{}, d.Stats())
		assert.Equal(t, path, d.Snapshot().Path())
	})

	t.Run("existing model", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		data := `[2, 2, {"buy": [0, 1], "cheap": [0, 2], "lunch": [2, 1], "noon": [1, 0]}]`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
		d, err := NewDetector(path)
		require.NoError(t, err)
		assert.Equal(t, Stats{SpamTotal: 2, HamTotal: 2, Tokens: 4}, d.Stats())
		assert.InDelta(t, 0.9801980198019802, d.Score("cheap lunch"), 1e-12)
	})

	t.Run("malformed model", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"spam": 1}`), 0o600))
		_, err := NewDetector(path)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, path, fe.Path)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewDetector(filepath.Join(t.TempDir(), "no-such-dir", "model.json"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestDetector_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := NewDetectorWithModel(nil)
	d.Train("buy cheap viagra now", true)
	d.Train("let us meet for lunch", false)
	d.Train("Цена $1,000.50 за e-mail рассылку", true)
	d.Train("lunch lunch lunch", false)

	path := filepath.Join(dir, "model.json")
	require.NoError(t, d.Save(path))

	d2, err := NewDetector("")
	require.NoError(t, err)
	require.NoError(t, d2.Load(path))

	orig, loaded := d.Snapshot(), d2.Snapshot()
	assert.Equal(t, orig.SpamTotal, loaded.SpamTotal)
	assert.Equal(t, orig.HamTotal, loaded.HamTotal)
	assert.Equal(t, orig.Tokens, loaded.Tokens)
	assert.Equal(t, path, loaded.Path())

	for _, msg := range []string{"buy viagra", "lunch meeting", "$1,000.50 рассылку"} {
		assert.Equal(t, d.Score(msg), d2.Score(msg), msg)
	}
}

func TestDetector_Replace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	d, err := NewDetector(path)
	require.NoError(t, err)
	d.Train("old data", true)

	m := NewModel()
	m.HamTotal = 1
	m.Tokens["fresh"] = Counts{Ham: 1}
	d.Replace(m)

	assert.Equal(t, Stats{HamTotal: 1, Tokens: 1}, d.Stats())
	assert.Equal(t, path, d.Snapshot().Path(), "remembered path kept")
	require.NoError(t, d.Save(""))

	d.Replace(nil)
	assert.Equal(t, Stats{}, d.Stats())
	assert.InDelta(t, 0.4, d.Score("fresh"), 1e-12)
}
