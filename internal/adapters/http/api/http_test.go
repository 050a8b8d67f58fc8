package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bolao/internal/adapters/auth"
	"github.com/okian/bolao/internal/adapters/http/api"
	service "github.com/okian/bolao/internal/app"
	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/internal/domain/types"
	"github.com/okian/bolao/pkg/logger"
)

const secret = "api-test-secret"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var (
	now     = time.Date(2026, 6, 11, 12, 0, 0, 0, time.UTC)
	kickoff = now.Add(time.Hour)
)

// newServer returns a mux backed by a running in-memory service with users
// 1 and 2, open match 10 and match 11, which kicked off two days ago.
func newServer() (*http.ServeMux, *service.Service) {
	ctx := context.Background()
	svc := service.New(service.WithClock(func() time.Time { return now }))
	So(svc.Start(ctx), ShouldBeNil)
	So(svc.RegisterUser(ctx, model.User{ID: 1, Name: "A"}), ShouldBeNil)
	So(svc.RegisterUser(ctx, model.User{ID: 2, Name: "B"}), ShouldBeNil)
	So(svc.ScheduleMatch(ctx, model.Match{ID: 10, Round: 1, HomeTeam: "X", AwayTeam: "Y", ScheduledAt: kickoff}), ShouldBeNil)
	So(svc.ScheduleMatch(ctx, model.Match{ID: 11, Round: 1, HomeTeam: "Z", AwayTeam: "W", ScheduledAt: now.Add(-48 * time.Hour)}), ShouldBeNil)

	verifier, err := auth.NewVerifier(secret)
	So(err, ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, verifier, api.WithMaxLeaderboardLimit(10)).Register(ctx, mux)
	return mux, svc
}

func do(mux http.Handler, method, path, body string, user model.UserID) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if user != 0 {
		tok, err := auth.Sign(secret, user, time.Hour)
		So(err, ShouldBeNil)
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	api.RequestIDMiddleware(mux).ServeHTTP(w, r)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body.Code
}

func TestPredictionsEndpoint(t *testing.T) {
	Convey("Given the API", t, func() {
		mux, svc := newServer()
		Reset(svc.Stop)

		Convey("Unauthenticated requests are rejected", func() {
			w := do(mux, http.MethodGet, "/api/predictions", "", 0)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(errorCode(w), ShouldEqual, "unauthorized")
		})

		Convey("A prediction is saved and listed", func() {
			w := do(mux, http.MethodPost, "/api/predictions", `{"matchId":10,"homeScore":2,"awayScore":1}`, 1)
			So(w.Code, ShouldEqual, http.StatusOK)
			var p types.Prediction
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p, ShouldResemble, types.Prediction{MatchID: 10, HomeScore: 2, AwayScore: 1})

			w = do(mux, http.MethodPost, "/api/predictions", `{"matchId":10,"homeScore":0,"awayScore":0}`, 1)
			So(w.Code, ShouldEqual, http.StatusOK)

			w = do(mux, http.MethodGet, "/api/predictions", "", 1)
			So(w.Code, ShouldEqual, http.StatusOK)
			var ps []types.Prediction
			So(json.Unmarshal(w.Body.Bytes(), &ps), ShouldBeNil)
			So(len(ps), ShouldEqual, 1)
			So(ps[0].HomeScore, ShouldEqual, 0)
		})

		Convey("Error kinds map to status codes", func() {
			cases := []struct {
				body   string
				status int
				code   string
			}{
				{`{"matchId":10,"homeScore":2}`, http.StatusBadRequest, "validation_error"},
				{`{"matchId":10,"homeScore":-1,"awayScore":0}`, http.StatusBadRequest, "validation_error"},
				{`{"matchId":`, http.StatusBadRequest, "bad_request"},
				{`{"matchId":999,"homeScore":1,"awayScore":1}`, http.StatusNotFound, "not_found"},
				{`{"matchId":11,"homeScore":1,"awayScore":1}`, http.StatusConflict, "prediction_locked"},
			}
			for _, c := range cases {
				w := do(mux, http.MethodPost, "/api/predictions", c.body, 1)
				So(w.Code, ShouldEqual, c.status)
				So(errorCode(w), ShouldEqual, c.code)
			}
		})

		Convey("Other methods are not routed", func() {
			w := do(mux, http.MethodDelete, "/api/predictions", "", 1)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMatchesAndRanking(t *testing.T) {
	Convey("Given predictions on a finalized match", t, func() {
		ctx := context.Background()
		mux, svc := newServer()
		Reset(svc.Stop)

		So(svc.ScheduleMatch(ctx, model.Match{ID: 12, Round: 2, ScheduledAt: kickoff.Add(time.Hour)}), ShouldBeNil)
		So(do(mux, http.MethodPost, "/api/predictions", `{"matchId":12,"homeScore":2,"awayScore":1}`, 1).Code, ShouldEqual, http.StatusOK)
		So(do(mux, http.MethodPost, "/api/predictions", `{"matchId":12,"homeScore":1,"awayScore":0}`, 2).Code, ShouldEqual, http.StatusOK)
		So(svc.RecordResult(ctx, 12, 2, 1), ShouldBeNil)

		Convey("GET /api/matches lists fixtures with scores once final", func() {
			w := do(mux, http.MethodGet, "/api/matches", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			var ms []types.Match
			So(json.Unmarshal(w.Body.Bytes(), &ms), ShouldBeNil)
			So(len(ms), ShouldEqual, 3)
			for _, m := range ms {
				So(m.Finalized, ShouldEqual, m.HomeScore != nil)
			}
		})

		Convey("GET /api/ranking orders by points", func() {
			w := do(mux, http.MethodGet, "/api/ranking", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			var es []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &es), ShouldBeNil)
			So(es, ShouldResemble, []types.Entry{
				{Position: 1, UserID: 1, Name: "A", Points: 3, Exact: 1, RoundsWon: 1},
				{Position: 2, UserID: 2, Name: "B", Points: 1},
			})
		})

		Convey("GET /api/ranking?round=N counts only that round", func() {
			w := do(mux, http.MethodGet, "/api/ranking?round=2&limit=1", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			var es []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &es), ShouldBeNil)
			So(es, ShouldResemble, []types.Entry{
				{Position: 1, UserID: 1, Name: "A", Points: 3, Exact: 1, RoundsWon: 1},
			})

			w = do(mux, http.MethodGet, "/api/ranking?round=1", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			es = nil
			So(json.Unmarshal(w.Body.Bytes(), &es), ShouldBeNil)
			So(len(es), ShouldEqual, 2)
			So(es[0].Points, ShouldEqual, 0)
			So(es[0].RoundsWon, ShouldEqual, 0)

			for _, bad := range []string{"0", "-1", "abc"} {
				w = do(mux, http.MethodGet, "/api/ranking?round="+bad, "", 0)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			}
		})

		Convey("The limit parameter is validated", func() {
			w := do(mux, http.MethodGet, "/api/ranking?limit=1", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			var es []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &es), ShouldBeNil)
			So(len(es), ShouldEqual, 1)

			So(do(mux, http.MethodGet, "/api/ranking?limit=0", "", 0).Code, ShouldEqual, http.StatusBadRequest)
			w = do(mux, http.MethodGet, "/api/ranking?limit=11", "", 0)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
		})

		Convey("GET /api/ranking/{userId} returns one entry", func() {
			w := do(mux, http.MethodGet, "/api/ranking/2", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			var e types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
			So(e.Position, ShouldEqual, 2)

			So(do(mux, http.MethodGet, "/api/ranking/77", "", 0).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/api/ranking/abc", "", 0).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET /stats reports the data set", func() {
			w := do(mux, http.MethodGet, "/stats", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["predictions"], ShouldEqual, 2.0)
		})

		Convey("GET /healthz serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "", 0)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "bolao_predictions_submitted_total")
		})
	})
}

type failingDeps struct{}

func (failingDeps) Matches(context.Context) ([]types.Match, error) {
	return nil, errors.New("connection reset")
}

func (failingDeps) SubmitPrediction(context.Context, model.UserID, service.PredictionRequest) (types.Prediction, error) {
	return types.Prediction{}, errors.New("connection reset")
}

func (failingDeps) Predictions(context.Context, model.UserID) ([]types.Prediction, error) {
	return nil, errors.New("connection reset")
}

func (failingDeps) Leaderboard(context.Context, int) ([]types.Entry, error) {
	return nil, errors.New("connection reset")
}

func (failingDeps) RoundLeaderboard(context.Context, int, int) ([]types.Entry, error) {
	return nil, errors.New("connection reset")
}

func (failingDeps) Rank(context.Context, model.UserID) (types.Entry, error) {
	return types.Entry{}, errors.New("connection reset")
}

type noStats struct{}

func (noStats) GetStats() map[string]interface{} { return map[string]interface{}{} }

func TestInternalErrors(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		verifier, _ := auth.NewVerifier(secret)
		mux := http.NewServeMux()
		api.NewServer(failingDeps{}, noStats{}, verifier).Register(context.Background(), mux)

		Convey("Failures become 500 without leaking the cause", func() {
			for _, path := range []string{"/api/matches", "/api/ranking", "/api/ranking?round=1", "/api/ranking/1"} {
				w := do(mux, http.MethodGet, path, "", 0)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorCode(w), ShouldEqual, "internal_error")
				So(w.Body.String(), ShouldNotContainSubstring, "connection reset")
			}
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		}))

		Convey("A client id is echoed", func() {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(api.HeaderRequestID, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "abc-123")
			So(seen, ShouldEqual, "abc-123")
		})

		Convey("A missing id is generated", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			So(len(w.Header().Get(api.HeaderRequestID)), ShouldEqual, 36)
			So(seen, ShouldEqual, w.Header().Get(api.HeaderRequestID))
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Operation errors keep their kind and cause", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: eof")

		So(api.Wrap("api.op", nil), ShouldBeNil)
		So(errors.Is(api.NewKind("api.op", api.ErrBadRequest), api.ErrBadRequest), ShouldBeTrue)
	})
}
