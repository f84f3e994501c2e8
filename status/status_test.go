package status

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	gc "gopkg.in/check.v1"

	"github.com/tnc-ca-geo/SAGE/backend"
	"github.com/tnc-ca-geo/SAGE/monitor"
	"github.com/tnc-ca-geo/SAGE/status/mocks"
)

var _ = gc.Suite(new(StatusTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type StatusTestSuite struct{}

func (s *StatusTestSuite) TestListSnapshots(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	srv, source := s.setupServer(c, ctrl)
	source.EXPECT().Snapshots().Return([]*monitor.Snapshot{
		snapshot("credentialsLC", 3),
		snapshot("credentialsRCR1", 1),
	})

	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", statusEndpoint, nil))
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Header().Get("Content-Type"), gc.Equals, "application/json")

	var got []*monitor.Snapshot
	c.Assert(json.NewDecoder(res.Body).Decode(&got), gc.IsNil)
	c.Assert(got, gc.HasLen, 2)
	c.Assert(got[0].Credential, gc.Equals, "credentialsLC")
	c.Assert(got[0].Total, gc.Equals, 3)
	c.Assert(got[0].ByState[backend.StateRunning], gc.HasLen, 3)
	c.Assert(got[1].Credential, gc.Equals, "credentialsRCR1")
}

func (s *StatusTestSuite) TestGetSnapshot(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	srv, source := s.setupServer(c, ctrl)
	source.EXPECT().Latest("credentialsLC").Return(snapshot("credentialsLC", 2), true)
	source.EXPECT().Latest("credentialsGone").Return(nil, false)

	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", statusEndpoint+"/credentialsLC", nil))
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	var got monitor.Snapshot
	c.Assert(json.NewDecoder(res.Body).Decode(&got), gc.IsNil)
	c.Assert(got.Total, gc.Equals, 2)

	res = httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", statusEndpoint+"/credentialsGone", nil))
	c.Assert(res.Code, gc.Equals, http.StatusNotFound)
	c.Assert(res.Body.String(), gc.Matches, `(?s).*no snapshot recorded for credentialsGone.*`)
}

func (s *StatusTestSuite) TestOverviewPage(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	srv, source := s.setupServer(c, ctrl)
	source.EXPECT().Snapshots().Return([]*monitor.Snapshot{snapshot("credentialsLC", 4)})

	srv.tplExecutor = func(_ *template.Template, _ io.Writer, data map[string]interface{}) error {
		views := data["snapshots"].([]snapshotView)
		c.Assert(views, gc.HasLen, 1)
		c.Assert(views[0].States, gc.HasLen, len(backend.States))
		for _, row := range views[0].States {
			if row.State == backend.StateRunning {
				c.Assert(row.Count, gc.Equals, 4)
			} else {
				c.Assert(row.Count, gc.Equals, 0)
			}
		}
		return nil
	}

	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", overviewEndpoint, nil))
	c.Assert(res.Code, gc.Equals, http.StatusOK)
}

func (s *StatusTestSuite) TestOverviewPageRendering(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	srv, source := s.setupServer(c, ctrl)
	source.EXPECT().Snapshots().Return([]*monitor.Snapshot{snapshot("credentialsLC", 1)})

	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", overviewEndpoint, nil))
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(strings.Contains(res.Body.String(), "<h2>credentialsLC</h2>"), gc.Equals, true)
}

func (s *StatusTestSuite) TestMetrics(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	srv, _ := s.setupServer(c, ctrl)
	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", metricsEndpoint, nil))
	c.Assert(res.Code, gc.Equals, http.StatusOK)
	c.Assert(res.Body.String(), gc.Matches, `(?s).*go_goroutines.*`)
}

func (s *StatusTestSuite) TestNotFound(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()

	srv, _ := s.setupServer(c, ctrl)
	res := httptest.NewRecorder()
	srv.ServeHTTP(res, httptest.NewRequest("GET", "/nope", nil))
	c.Assert(res.Code, gc.Equals, http.StatusNotFound)
}

func (s *StatusTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewServer(Config{})
	c.Assert(err, gc.ErrorMatches, "(?ms).*listen address has not been specified.*")
	c.Assert(err, gc.ErrorMatches, "(?ms).*snapshot source has not been provided.*")

	srv, err := NewServer(Config{Source: mocks.NewMockSnapshotSource(gomock.NewController(c)), ListenAddr: ":0"})
	c.Assert(err, gc.IsNil)
	c.Assert(srv.Logger(), gc.NotNil, gc.Commentf("default logger was not assigned"))
}

func (s *StatusTestSuite) setupServer(c *gc.C, ctrl *gomock.Controller) (*Server, *mocks.MockSnapshotSource) {
	source := mocks.NewMockSnapshotSource(ctrl)
	srv, err := NewServer(Config{
		Source:     source,
		ListenAddr: ":0",
	})
	c.Assert(err, gc.IsNil)
	return srv, source
}

func snapshot(credential string, running int) *monitor.Snapshot {
	snap := &monitor.Snapshot{
		Credential: credential,
		TakenAt:    time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC),
		ByState:    make(map[backend.TaskState][]*backend.Task),
		Total:      running,
	}
	for i := 0; i < running; i++ {
		snap.ByState[backend.StateRunning] = append(snap.ByState[backend.StateRunning], &backend.Task{
			ID:          string(rune('a' + i)),
			Description: "LT_Stack",
			State:       backend.StateRunning,
		})
	}
	return snap
}
