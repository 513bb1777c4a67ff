package storage

import (
	"context"
	"fmt"
	"strings"
)

func (s *StorageTestSuite) TestSamples_AddRead() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			samples, err := NewSamples(s.ctx, db)
			s.Require().NoError(err)

			tests := []struct {
				name    string
				sType   SampleType
				message string
				wantErr string
			}{
				{name: "ham", sType: SampleTypeHam, message: "let us meet for lunch"},
				{name: "spam", sType: SampleTypeSpam, message: "buy cheap viagra now"},
				{name: "another spam", sType: SampleTypeSpam, message: "win a free prize"},
				{name: "bad type", sType: "eggs", message: "some message", wantErr: "invalid sample type"},
				{name: "empty message", sType: SampleTypeHam, message: "", wantErr: "message can't be empty"},
			}
			for _, tt := range tests {
				s.Run(tt.name, func() {
					err := samples.Add(s.ctx, tt.sType, tt.message)
					if tt.wantErr != "" {
						s.Require().Error(err)
						s.Contains(err.Error(), tt.wantErr)
						return
					}
					s.NoError(err)
				})
			}

			spam, err := samples.Read(s.ctx, SampleTypeSpam)
			s.Require().NoError(err)
			s.Len(spam, 2)
			msgs := []string{spam[0].Message, spam[1].Message}
			s.ElementsMatch([]string{"buy cheap viagra now", "win a free prize"}, msgs)
			for _, sm := range spam {
				s.Equal(SampleTypeSpam, sm.Type)
				s.Positive(sm.ID)
			}

			// re-adding the same message with another type moves it
			s.Require().NoError(samples.Add(s.ctx, SampleTypeHam, "win a free prize"))
			st, err := samples.Stats(s.ctx)
			s.Require().NoError(err)
			s.Equal(&SamplesStats{TotalSpam: 1, TotalHam: 2}, st)
			s.Equal("spam: 1, ham: 2", st.String())

			_, err = samples.Read(s.ctx, "bad")
			s.Error(err)
		})
	}
}

func (s *StorageTestSuite) TestSamples_Delete() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			samples, err := NewSamples(s.ctx, db)
			s.Require().NoError(err)
			s.Require().NoError(samples.Add(s.ctx, SampleTypeSpam, "buy cheap viagra now"))

			spam, err := samples.Read(s.ctx, SampleTypeSpam)
			s.Require().NoError(err)
			s.Require().Len(spam, 1)

			s.Require().NoError(samples.Delete(s.ctx, spam[0].ID))
			err = samples.Delete(s.ctx, spam[0].ID)
			s.Require().Error(err)
			s.Contains(err.Error(), "not found")

			// other group can't delete our samples
			s.Require().NoError(samples.Add(s.ctx, SampleTypeSpam, "win a free prize"))
			spam, err = samples.Read(s.ctx, SampleTypeSpam)
			s.Require().NoError(err)
			other, err := NewSamples(s.ctx, db.WithGID("other"))
			s.Require().NoError(err)
			s.Error(other.Delete(s.ctx, spam[0].ID))
		})
	}
}

func (s *StorageTestSuite) TestSamples_Iterator() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			samples, err := NewSamples(s.ctx, db)
			s.Require().NoError(err)
			for _, msg := range []string{"first spam", "second spam", "third spam"} {
				s.Require().NoError(samples.Add(s.ctx, SampleTypeSpam, msg))
			}
			s.Require().NoError(samples.Add(s.ctx, SampleTypeHam, "some ham"))

			it, err := samples.Iterator(s.ctx, SampleTypeSpam)
			s.Require().NoError(err)
			var got []string
			for msg := range it {
				got = append(got, msg)
			}
			s.Equal([]string{"first spam", "second spam", "third spam"}, got)

			// early break closes rows
			it, err = samples.Iterator(s.ctx, SampleTypeSpam)
			s.Require().NoError(err)
			for range it {
				break
			}

			// cancelled context stops iteration
			ctx, cancel := context.WithCancel(s.ctx)
			it, err = samples.Iterator(ctx, SampleTypeHam)
			s.Require().NoError(err)
			cancel()
			count := 0
			for range it {
				count++
			}
			s.Zero(count)

			_, err = samples.Iterator(s.ctx, "bad")
			s.Error(err)
		})
	}
}

func (s *StorageTestSuite) TestSamples_Import() {
	for _, db := range s.getTestDB() {
		s.Run(fmt.Sprintf("with %s", db.Type()), func() {
			samples, err := NewSamples(s.ctx, db)
			s.Require().NoError(err)
			s.Require().NoError(samples.Add(s.ctx, SampleTypeSpam, "old spam"))

			st, err := samples.Import(s.ctx, SampleTypeSpam, strings.NewReader("spam one\n\nspam two\nspam one\n"), false)
			s.Require().NoError(err)
			s.Equal(&SamplesStats{TotalSpam: 3}, st, "duplicates collapsed, empty lines skipped")

			st, err = samples.Import(s.ctx, SampleTypeSpam, strings.NewReader("fresh spam\n"), true)
			s.Require().NoError(err)
			s.Equal(&SamplesStats{TotalSpam: 1}, st)

			_, err = samples.Import(s.ctx, SampleTypeHam, nil, false)
			s.Error(err)
			_, err = samples.Import(s.ctx, "bad", strings.NewReader("x"), false)
			s.Error(err)
		})
	}
}
