package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bolao/internal/adapters/repository"
	"github.com/okian/bolao/internal/domain/model"
)

var kickoff = time.Date(2026, 6, 11, 19, 0, 0, 0, time.UTC)

// contract runs the shared Store behaviour against a freshly opened store.
func contract(t *testing.T, name string, open func() repository.Store) {
	ctx := context.Background()

	Convey("Given an empty "+name+" store", t, func() {
		s := open()
		Reset(func() { _ = s.Close() })

		Convey("Predictions are upserted by (user, match)", func() {
			p := model.Prediction{UserID: 1, MatchID: 10, HomeScore: 2, AwayScore: 1}
			So(s.UpsertPrediction(ctx, p), ShouldBeNil)
			So(s.UpsertPrediction(ctx, p), ShouldBeNil)

			n, err := s.CountPredictions(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			p.HomeScore = 0
			So(s.UpsertPrediction(ctx, p), ShouldBeNil)
			got, err := s.GetPrediction(ctx, 1, 10)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, p)

			n, _ = s.CountPredictions(ctx)
			So(n, ShouldEqual, 1)
		})

		Convey("Truncate empties every collection", func() {
			So(s.PutUser(ctx, model.User{ID: 1, Name: "Ana"}), ShouldBeNil)
			So(s.PutMatch(ctx, model.Match{ID: 10, Round: 1, HomeTeam: "A", AwayTeam: "B", ScheduledAt: kickoff}), ShouldBeNil)
			So(s.UpsertPrediction(ctx, model.Prediction{UserID: 1, MatchID: 10, HomeScore: 1, AwayScore: 0}), ShouldBeNil)

			So(s.Truncate(ctx), ShouldBeNil)

			users, err := s.Users(ctx)
			So(err, ShouldBeNil)
			So(users, ShouldBeEmpty)
			matches, err := s.Matches(ctx)
			So(err, ShouldBeNil)
			So(matches, ShouldBeEmpty)
			n, err := s.CountPredictions(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			So(s.UpsertPrediction(ctx, model.Prediction{UserID: 1, MatchID: 10, HomeScore: 2, AwayScore: 2}), ShouldBeNil)
			n, _ = s.CountPredictions(ctx)
			So(n, ShouldEqual, 1)
		})

		Convey("Missing records report ErrNotFound", func() {
			_, err := s.GetPrediction(ctx, 1, 1)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = s.Match(ctx, 1)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.User(ctx, 1)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(s.SetResult(ctx, 99, 1, 0), repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Invalid records are rejected", func() {
			err := s.UpsertPrediction(ctx, model.Prediction{UserID: 1, MatchID: 1, HomeScore: -1})
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			err = s.PutMatch(ctx, model.Match{ID: 1, Round: 1, HomeScore: model.Score(1)})
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			err = s.PutUser(ctx, model.User{ID: 0, Name: "nobody"})
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})

		Convey("Listings are ordered", func() {
			for _, p := range []model.Prediction{
				{UserID: 2, MatchID: 3, HomeScore: 1},
				{UserID: 1, MatchID: 2},
				{UserID: 1, MatchID: 1, AwayScore: 4},
			} {
				So(s.UpsertPrediction(ctx, p), ShouldBeNil)
			}
			all, err := s.Predictions(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 3)
			So(all[0].Key(), ShouldResemble, model.PredictionKey{UserID: 1, MatchID: 1})
			So(all[2].Key(), ShouldResemble, model.PredictionKey{UserID: 2, MatchID: 3})

			mine, err := s.PredictionsByUser(ctx, 1)
			So(err, ShouldBeNil)
			So(len(mine), ShouldEqual, 2)
			So(mine[0].MatchID, ShouldEqual, model.MatchID(1))

			So(s.PutMatch(ctx, model.Match{ID: 7, Round: 1, HomeTeam: "A", AwayTeam: "B", ScheduledAt: kickoff.Add(time.Hour)}), ShouldBeNil)
			So(s.PutMatch(ctx, model.Match{ID: 8, Round: 1, HomeTeam: "C", AwayTeam: "D", ScheduledAt: kickoff}), ShouldBeNil)
			ms, err := s.Matches(ctx)
			So(err, ShouldBeNil)
			So(len(ms), ShouldEqual, 2)
			So(ms[0].ID, ShouldEqual, model.MatchID(8))

			So(s.PutUser(ctx, model.User{ID: 5, Name: "Eve"}), ShouldBeNil)
			So(s.PutUser(ctx, model.User{ID: 3, Name: "Bob"}), ShouldBeNil)
			us, err := s.Users(ctx)
			So(err, ShouldBeNil)
			So(us, ShouldResemble, []model.User{{ID: 3, Name: "Bob"}, {ID: 5, Name: "Eve"}})
		})

		Convey("SetResult finalizes a match", func() {
			So(s.PutMatch(ctx, model.Match{ID: 1, Round: 2, HomeTeam: "A", AwayTeam: "B", ScheduledAt: kickoff}), ShouldBeNil)
			m, err := s.Match(ctx, 1)
			So(err, ShouldBeNil)
			So(m.Finalized(), ShouldBeFalse)

			So(errors.Is(s.SetResult(ctx, 1, -1, 0), repository.ErrInvalidScore), ShouldBeTrue)
			So(s.SetResult(ctx, 1, 3, 2), ShouldBeNil)

			m, err = s.Match(ctx, 1)
			So(err, ShouldBeNil)
			So(m.Finalized(), ShouldBeTrue)
			So(*m.HomeScore, ShouldEqual, 3)
			So(*m.AwayScore, ShouldEqual, 2)
			So(m.HomeTeam, ShouldEqual, "A")
			So(m.ScheduledAt.Equal(kickoff), ShouldBeTrue)
		})

		Convey("Concurrent upserts of one key leave one of the values", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(goals int) {
					defer wg.Done()
					_ = s.UpsertPrediction(ctx, model.Prediction{UserID: 9, MatchID: 9, HomeScore: goals, AwayScore: goals})
				}(i)
			}
			wg.Wait()

			n, err := s.CountPredictions(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			got, err := s.GetPrediction(ctx, 9, 9)
			So(err, ShouldBeNil)
			So(got.HomeScore, ShouldEqual, got.AwayScore)
			So(got.HomeScore, ShouldBeBetweenOrEqual, 0, 15)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	contract(t, "memory", func() repository.Store { return repository.NewMemoryStore() })
}

func TestMemoryStore_ReturnedMatchesAreCopies(t *testing.T) {
	Convey("Given a finalized match in memory", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()
		So(s.PutMatch(ctx, model.Match{ID: 1, Round: 1, ScheduledAt: kickoff, HomeScore: model.Score(1), AwayScore: model.Score(0)}), ShouldBeNil)

		Convey("Mutating a returned match does not change the store", func() {
			m, _ := s.Match(ctx, 1)
			*m.HomeScore = 7
			again, _ := s.Match(ctx, 1)
			So(*again.HomeScore, ShouldEqual, 1)
		})
	})
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("BOLAO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BOLAO_TEST_DATABASE_URL not set")
	}
	contract(t, "postgres", func() repository.Store {
		ctx := context.Background()
		s, err := repository.OpenPostgres(ctx, url, repository.WithConnectWait(5*time.Second))
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if err := s.Truncate(ctx); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BOLAO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOLAO_TEST_REDIS_ADDR not set")
	}
	run := 0
	contract(t, "redis", func() repository.Store {
		run++
		prefix := fmt.Sprintf("bolao-test-%d-%d", time.Now().UnixNano(), run)
		s, err := repository.OpenRedis(context.Background(), addr, "", 0, repository.WithKeyPrefix(prefix))
		if err != nil {
			t.Fatalf("open redis: %v", err)
		}
		return s
	})
}

func TestOpen(t *testing.T) {
	Convey("Open selects a driver", t, func() {
		ctx := context.Background()

		s, err := repository.Open(ctx, repository.Config{})
		So(err, ShouldBeNil)
		So(s.Driver(), ShouldEqual, repository.DriverMemory)

		_, err = repository.Open(ctx, repository.Config{Driver: "sqlite"})
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)

		_, err = repository.Open(ctx, repository.Config{Driver: repository.DriverPostgres})
		So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)
	})
}
