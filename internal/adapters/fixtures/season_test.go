package fixtures_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bolao/internal/adapters/fixtures"
	"github.com/okian/bolao/internal/adapters/repository"
	"github.com/okian/bolao/internal/domain/ledger"
	"github.com/okian/bolao/internal/domain/model"
)

const season = `
users:
  - {id: 1, name: Ana}
  - {id: 2, name: Bia}
matches:
  - {id: 10, round: 1, home: Brasil, away: Sérvia, at: 2026-06-11T19:00:00Z, home_score: 2, away_score: 0}
  - {id: 11, round: 1, home: Suíça, away: Camarões, at: 2026-06-12T16:00:00Z}
predictions:
  - {user: 1, match: 10, home: 2, away: 0}
  - {user: 2, match: 10, home: 1, away: 0}
  - {user: 2, match: 11, home: 1, away: 1}
`

func TestParse(t *testing.T) {
	Convey("Given a valid season document", t, func() {
		s, err := fixtures.Parse([]byte(season))
		So(err, ShouldBeNil)

		Convey("Every section is decoded", func() {
			So(len(s.Users), ShouldEqual, 2)
			So(len(s.Matches), ShouldEqual, 2)
			So(len(s.Predictions), ShouldEqual, 3)
			m := s.Matches[0].Model()
			So(m.Finalized(), ShouldBeTrue)
			So(m.HomeTeam, ShouldEqual, "Brasil")
			So(s.Matches[1].Model().Finalized(), ShouldBeFalse)
		})
	})

	Convey("Malformed seasons are rejected", t, func() {
		docs := []string{
			"users: [{id: 0, name: x}]",
			"users: [{id: 1, name: x}, {id: 1, name: y}]",
			"matches: [{id: 1, round: 0, at: 2026-06-11T19:00:00Z}]",
			"matches: [{id: 1, round: 1, at: 2026-06-11T19:00:00Z, home_score: 1}]",
			"matches: [{id: 1, round: 1, at: 2026-06-11T19:00:00Z, home_score: -1, away_score: 0}]",
			"predictions: [{user: 1, match: 1, home: 0, away: 0}]",
			"users: [",
		}
		for _, doc := range docs {
			_, err := fixtures.Parse([]byte(doc))
			So(errors.Is(err, fixtures.ErrInvalidSeason), ShouldBeTrue)
		}
	})
}

func TestLoadAndApply(t *testing.T) {
	Convey("Given a season file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "season.yaml")
		So(os.WriteFile(path, []byte(season), 0o600), ShouldBeNil)

		s, err := fixtures.Load(path)
		So(err, ShouldBeNil)

		Convey("Apply fills the store", func() {
			ctx := context.Background()
			store := repository.NewMemoryStore()
			So(fixtures.Apply(ctx, s, store), ShouldBeNil)

			users, _ := store.Users(ctx)
			So(len(users), ShouldEqual, 2)
			matches, _ := store.Matches(ctx)
			So(len(matches), ShouldEqual, 2)
			n, _ := store.CountPredictions(ctx)
			So(n, ShouldEqual, 3)

			Convey("Applying twice changes nothing", func() {
				So(fixtures.Apply(ctx, s, store), ShouldBeNil)
				n, _ := store.CountPredictions(ctx)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("Predictions are validated by the ledger", func() {
			s.Predictions = append(s.Predictions, fixtures.Prediction{User: 1, Match: 11, Home: model.Score(5), Away: nil})
			err := fixtures.Apply(context.Background(), s, repository.NewMemoryStore())
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)
		})
	})

	Convey("A missing file is an error", t, func() {
		_, err := fixtures.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		So(err, ShouldNotBeNil)
	})
}
