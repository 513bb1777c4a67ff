package storage

import (
	"fmt"
	"time"

	"github.com/umputun/antispam/lib/antispam"
)

func (s *StorageTestSuite) TestNewModels() {
	_, err := NewModels(s.ctx, nil)
	s.Error(err)

	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			m, err := NewModels(s.ctx, db)
			s.Require().NoError(err)
			s.Contains(m.String(), "gid=gr1")

			_, err = NewModels(s.ctx, db)
			s.NoError(err, "tables already exist")
		})
	}
}

func (s *StorageTestSuite) TestModels_SaveLoad() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			store, err := NewModels(s.ctx, db)
			s.Require().NoError(err)

			// nothing stored yet
			m, err := store.Load(s.ctx)
			s.Require().NoError(err)
			s.Equal(antispam.Stats{}, m.Stats())
			ts, err := store.UpdatedAt(s.ctx)
			s.Require().NoError(err)
			s.True(ts.IsZero())

			det := antispam.NewDetectorWithModel(nil)
			det.Train("buy cheap viagra now", true)
			det.Train("win a free prize now", true)
			det.Train("let us meet for lunch", false)
			det.Train("Привет, как дела? цена $1,000.50", false)
			model := det.Snapshot()

			s.Require().NoError(store.Save(s.ctx, model))
			loaded, err := store.Load(s.ctx)
			s.Require().NoError(err)
			s.Equal(model.SpamTotal, loaded.SpamTotal)
			s.Equal(model.HamTotal, loaded.HamTotal)
			s.Equal(model.Tokens, loaded.Tokens)
			s.InDelta(det.Score("cheap prize"), antispam.NewDetectorWithModel(loaded).Score("cheap prize"), 1e-12)

			ts, err = store.UpdatedAt(s.ctx)
			s.Require().NoError(err)
			s.WithinDuration(time.Now(), ts, 24*time.Hour) // sqlite CURRENT_TIMESTAMP and time.Now may differ in zone

			// save replaces everything, dropped tokens are gone
			smaller := antispam.NewModel()
			smaller.HamTotal = 1
			smaller.Tokens["lunch"] = antispam.Counts{Ham: 1}
			s.Require().NoError(store.Save(s.ctx, smaller))
			loaded, err = store.Load(s.ctx)
			s.Require().NoError(err)
			s.Equal(antispam.Stats{HamTotal: 1, Tokens: 1}, loaded.Stats())
			s.Equal(antispam.Counts{Ham: 1}, loaded.Tokens["lunch"])

			s.Error(store.Save(s.ctx, nil))
		})
	}
}

func (s *StorageTestSuite) TestModels_GroupIsolation() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			store1, err := NewModels(s.ctx, db)
			s.Require().NoError(err)
			store2, err := NewModels(s.ctx, db.WithGID("gr2"))
			s.Require().NoError(err)

			m1 := antispam.NewModel()
			m1.SpamTotal = 1
			m1.Tokens["viagra"] = antispam.Counts{Spam: 1}
			s.Require().NoError(store1.Save(s.ctx, m1))

			m2 := antispam.NewModel()
			m2.HamTotal = 2
			m2.Tokens["lunch"] = antispam.Counts{Ham: 2}
			s.Require().NoError(store2.Save(s.ctx, m2))

			loaded1, err := store1.Load(s.ctx)
			s.Require().NoError(err)
			s.Equal(m1.Tokens, loaded1.Tokens)

			loaded2, err := store2.Load(s.ctx)
			s.Require().NoError(err)
			s.Equal(m2.Tokens, loaded2.Tokens)
			s.Equal(int64(2), loaded2.HamTotal)
		})
	}
}
