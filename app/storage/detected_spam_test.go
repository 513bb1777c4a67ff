package storage

import (
	"fmt"
	"time"
)

func (s *StorageTestSuite) TestDetectedSpam_NewDetectedSpam() {
	_, err := NewDetectedSpam(s.ctx, nil)
	s.Error(err)

	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			ds, err := NewDetectedSpam(s.ctx, db)
			s.Require().NoError(err)
			s.Contains(ds.String(), "detected spam")

			var count int
			s.Require().NoError(db.Get(&count, "SELECT COUNT(*) FROM detected_spam"))
			s.Equal(0, count)
		})
	}
}

func (s *StorageTestSuite) TestDetectedSpam_WriteRead() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			ds, err := NewDetectedSpam(s.ctx, db)
			s.Require().NoError(err)

			ts := time.Now().Add(-time.Hour).Truncate(time.Second)
			s.Require().NoError(ds.Write(s.ctx, DetectedSpamInfo{Text: "old spam", Score: 0.95, Timestamp: ts}))
			s.Require().NoError(ds.Write(s.ctx, DetectedSpamInfo{Text: "new spam", Score: 0.99}))

			// other group doesn't see entries
			other, err := NewDetectedSpam(s.ctx, db.WithGID("gr2"))
			s.Require().NoError(err)
			entries, err := other.Read(s.ctx, 0)
			s.Require().NoError(err)
			s.Empty(entries)

			entries, err = ds.Read(s.ctx, 0)
			s.Require().NoError(err)
			s.Require().Len(entries, 2)
			s.Equal("new spam", entries[0].Text)
			s.InDelta(0.99, entries[0].Score, 1e-9)
			s.Equal("old spam", entries[1].Text)
			s.WithinDuration(ts, entries[1].Timestamp, time.Second)

			entries, err = ds.Read(s.ctx, 1)
			s.Require().NoError(err)
			s.Require().Len(entries, 1)
			s.Equal("new spam", entries[0].Text)
		})
	}
}
