package scoreapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/goalsensor/internal/adapters/scoreapi"
	"github.com/okian/goalsensor/internal/domain/match"
)

type captured struct {
	mu        sync.Mutex
	method    string
	body      string
	requestID string
}

func serve(status int, payload string, delay time.Duration, c *captured) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c != nil {
			body, _ := io.ReadAll(r.Body)
			c.mu.Lock()
			c.method = r.Method
			c.body = string(body)
			c.requestID = r.Header.Get("X-Request-ID")
			c.mu.Unlock()
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
}

func fetch(srv *httptest.Server, timeout time.Duration, opts ...scoreapi.Option) match.Outcome {
	c, err := scoreapi.New(srv.URL, opts...)
	So(err, ShouldBeNil)
	return c.Fetch(context.Background(), timeout)
}

func TestNew(t *testing.T) {
	Convey("Given a url without a scheme", t, func() {
		_, err := scoreapi.New("score.local:8080/score")

		Convey("Then construction fails", func() {
			So(errors.Is(err, scoreapi.ErrInvalidURL), ShouldBeTrue)
		})
	})
}

func TestFetchClassification(t *testing.T) {
	Convey("Given a score server", t, func() {
		Convey("A score response yields a signal with lowercase teams", func() {
			srv := serve(http.StatusOK, `{"hasSignal":true,"score":{"FOO":1,"bar":0}}`, 0, nil)
			defer srv.Close()
			o := fetch(srv, time.Second)
			So(o.Kind, ShouldEqual, match.OutcomeSignal)
			So(o.Score, ShouldResemble, match.Score{"foo": 1, "bar": 0})
			So(string(o.Raw), ShouldContainSubstring, `"FOO":1`)
		})

		Convey("hasSignal false yields no signal", func() {
			srv := serve(http.StatusOK, `{"hasSignal":false}`, 0, nil)
			defer srv.Close()
			So(fetch(srv, time.Second).Kind, ShouldEqual, match.OutcomeNoSignal)
		})

		Convey("A missing score is a missing field failure", func() {
			srv := serve(http.StatusOK, `{"hasSignal":true}`, 0, nil)
			defer srv.Close()
			o := fetch(srv, time.Second)
			So(o.Kind, ShouldEqual, match.OutcomeFailure)
			So(o.Failure, ShouldEqual, match.FailureMissingField)
		})

		Convey("A missing hasSignal is tolerated unless required", func() {
			srv := serve(http.StatusOK, `{"score":{"foo":2}}`, 0, nil)
			defer srv.Close()
			So(fetch(srv, time.Second).Kind, ShouldEqual, match.OutcomeSignal)
			o := fetch(srv, time.Second, scoreapi.WithRequireSignalField(true))
			So(o.Failure, ShouldEqual, match.FailureMissingField)
		})

		Convey("Unparseable JSON is a malformed response", func() {
			srv := serve(http.StatusOK, `{"score":`, 0, nil)
			defer srv.Close()
			o := fetch(srv, time.Second)
			So(o.Failure, ShouldEqual, match.FailureMalformedResponse)
		})

		Convey("Non-integer scores are a malformed response", func() {
			srv := serve(http.StatusOK, `{"score":{"foo":"one"}}`, 0, nil)
			defer srv.Close()
			So(fetch(srv, time.Second).Failure, ShouldEqual, match.FailureMalformedResponse)
		})

		Convey("A non-2xx status is a connection failure", func() {
			srv := serve(http.StatusServiceUnavailable, `{"error":"warming up"}`, 0, nil)
			defer srv.Close()
			o := fetch(srv, time.Second)
			So(o.Kind, ShouldEqual, match.OutcomeFailure)
			So(o.Failure, ShouldEqual, match.FailureConnection)
			So(string(o.Raw), ShouldContainSubstring, "warming up")
		})

		Convey("A slow server is a timeout", func() {
			srv := serve(http.StatusOK, `{"score":{"foo":1}}`, 500*time.Millisecond, nil)
			defer srv.Close()
			o := fetch(srv, 30*time.Millisecond)
			So(o.Failure, ShouldEqual, match.FailureTimeout)
		})

		Convey("An unreachable server is a connection failure", func() {
			srv := serve(http.StatusOK, `{}`, 0, nil)
			url := srv.URL
			srv.Close()
			c, err := scoreapi.New(url)
			So(err, ShouldBeNil)
			So(c.Fetch(context.Background(), time.Second).Failure, ShouldEqual, match.FailureConnection)
		})
	})
}

func TestFetchFrameAge(t *testing.T) {
	Convey("Given a server stamping its frames", t, func() {
		now := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
		stamp := func(age time.Duration) string {
			return strconv.FormatInt(now.Add(-age).UnixMilli(), 10)
		}
		clock := scoreapi.WithClock(func() time.Time { return now })

		Convey("A fresh frame is accepted", func() {
			srv := serve(http.StatusOK, `{"score":{"foo":1},"timestamp":`+stamp(time.Second)+`}`, 0, nil)
			defer srv.Close()
			o := fetch(srv, time.Second, clock, scoreapi.WithMaxFrameAge(5*time.Second))
			So(o.Kind, ShouldEqual, match.OutcomeSignal)
		})

		Convey("A stale frame is reported as no signal", func() {
			srv := serve(http.StatusOK, `{"score":{"foo":1},"timestamp":`+stamp(5*time.Second)+`}`, 0, nil)
			defer srv.Close()
			o := fetch(srv, time.Second, clock, scoreapi.WithMaxFrameAge(5*time.Second))
			So(o.Kind, ShouldEqual, match.OutcomeNoSignal)
		})

		Convey("The check is off by default", func() {
			srv := serve(http.StatusOK, `{"score":{"foo":1},"timestamp":`+stamp(time.Hour)+`}`, 0, nil)
			defer srv.Close()
			So(fetch(srv, time.Second, clock).Kind, ShouldEqual, match.OutcomeSignal)
		})
	})
}

func TestFetchRequest(t *testing.T) {
	Convey("Given a client configured with a command body", t, func() {
		c := &captured{}
		srv := serve(http.StatusOK, `{"score":{"foo":0}}`, 0, c)
		defer srv.Close()

		fetch(srv, time.Second,
			scoreapi.WithMethod("post"),
			scoreapi.WithBody(`{ "command":"cropped-image" }`),
			scoreapi.WithRequestIDGenerator(func() string { return "req-1" }),
		)

		Convey("Then the request carries the method, body, and request id", func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			So(c.method, ShouldEqual, http.MethodPost)
			So(c.body, ShouldEqual, `{ "command":"cropped-image" }`)
			So(c.requestID, ShouldEqual, "req-1")
		})
	})

	Convey("Given a default client", t, func() {
		c := &captured{}
		srv := serve(http.StatusOK, `{"score":{"foo":0}}`, 0, c)
		defer srv.Close()
		fetch(srv, time.Second)

		Convey("Then it issues a GET with a generated request id", func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			So(c.method, ShouldEqual, http.MethodGet)
			So(c.body, ShouldBeEmpty)
			So(c.requestID, ShouldNotBeEmpty)
		})
	})
}
