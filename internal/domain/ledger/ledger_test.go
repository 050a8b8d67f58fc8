package ledger_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bolao/internal/domain/ledger"
	"github.com/okian/bolao/internal/domain/model"
)

// mapStore is a minimal ledger.Store.
type mapStore struct {
	mu sync.Mutex
	ps map[model.PredictionKey]model.Prediction
}

func newMapStore() *mapStore {
	return &mapStore{ps: make(map[model.PredictionKey]model.Prediction)}
}

func (s *mapStore) UpsertPrediction(_ context.Context, p model.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ps[p.Key()] = p
	return nil
}

func (s *mapStore) GetPrediction(_ context.Context, u model.UserID, m model.MatchID) (model.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.ps[model.PredictionKey{UserID: u, MatchID: m}]
	if !ok {
		return model.Prediction{}, model.ErrNotFound
	}
	return p, nil
}

func (s *mapStore) PredictionsByUser(_ context.Context, u model.UserID) ([]model.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Prediction
	for _, p := range s.ps {
		if p.UserID == u {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out, nil
}

func (s *mapStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ps)
}

func TestLedger_Upsert(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		ctx := context.Background()
		store := newMapStore()
		l := ledger.New(store)

		Convey("A valid submission is stored", func() {
			p, err := l.Upsert(ctx, 1, 10, model.Score(2), model.Score(1))
			So(err, ShouldBeNil)
			So(p, ShouldResemble, model.Prediction{UserID: 1, MatchID: 10, HomeScore: 2, AwayScore: 1})

			got, ok, err := l.Get(ctx, 1, 10)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, p)
		})

		Convey("Repeating a submission is idempotent", func() {
			_, err := l.Upsert(ctx, 1, 10, model.Score(2), model.Score(1))
			So(err, ShouldBeNil)
			_, err = l.Upsert(ctx, 1, 10, model.Score(2), model.Score(1))
			So(err, ShouldBeNil)

			n := store.count()
			So(n, ShouldEqual, 1)
		})

		Convey("A later submission replaces the earlier scores", func() {
			_, _ = l.Upsert(ctx, 1, 10, model.Score(2), model.Score(1))
			_, err := l.Upsert(ctx, 1, 10, model.Score(0), model.Score(0))
			So(err, ShouldBeNil)

			got, _, _ := l.Get(ctx, 1, 10)
			So(got.HomeScore, ShouldEqual, 0)
			So(got.AwayScore, ShouldEqual, 0)
			n := store.count()
			So(n, ShouldEqual, 1)
		})

		Convey("Invalid submissions are rejected before the store is touched", func() {
			cases := []struct {
				user  model.UserID
				match model.MatchID
				home  *int
				away  *int
				field string
			}{
				{0, 10, model.Score(1), model.Score(1), "userId"},
				{1, -3, model.Score(1), model.Score(1), "matchId"},
				{1, 10, nil, model.Score(1), "homeScore"},
				{1, 10, model.Score(1), nil, "awayScore"},
				{1, 10, model.Score(-1), model.Score(0), "homeScore"},
				{1, 10, model.Score(0), model.Score(100), "awayScore"},
			}
			for _, c := range cases {
				_, err := l.Upsert(ctx, c.user, c.match, c.home, c.away)
				So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)

				var verr *ledger.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Field, ShouldEqual, c.field)
			}
			n := store.count()
			So(n, ShouldEqual, 0)
		})

		Convey("The score ceiling is configurable", func() {
			strict := ledger.New(store, ledger.WithMaxGoals(10))
			So(strict.MaxGoals(), ShouldEqual, 10)
			_, err := strict.Upsert(ctx, 1, 1, model.Score(11), model.Score(0))
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)
			_, err = strict.Upsert(ctx, 1, 1, model.Score(10), model.Score(0))
			So(err, ShouldBeNil)
		})
	})
}

func TestLedger_Reads(t *testing.T) {
	Convey("Given a ledger with predictions for two users", t, func() {
		ctx := context.Background()
		l := ledger.New(newMapStore())
		_, _ = l.Upsert(ctx, 1, 30, model.Score(1), model.Score(0))
		_, _ = l.Upsert(ctx, 1, 20, model.Score(2), model.Score(2))
		_, _ = l.Upsert(ctx, 2, 20, model.Score(0), model.Score(3))

		Convey("AllFor returns only that user's predictions by match id", func() {
			ps, err := l.AllFor(ctx, 1)
			So(err, ShouldBeNil)
			So(len(ps), ShouldEqual, 2)
			So(ps[0].MatchID, ShouldEqual, model.MatchID(20))
			So(ps[1].MatchID, ShouldEqual, model.MatchID(30))
		})

		Convey("Get reports absence without an error", func() {
			_, ok, err := l.Get(ctx, 2, 30)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}
