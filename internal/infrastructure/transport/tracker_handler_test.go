package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"jobtracker/app/usecase"
	"jobtracker/internal/domain/entity"
	"jobtracker/internal/domain/repository"
)

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

type memoryRepo struct {
	mu      sync.Mutex
	jobs    []entity.Job
	saveErr error
}

func (r *memoryRepo) Load(context.Context) ([]entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Job{}, r.jobs...), nil
}

func (r *memoryRepo) Save(_ context.Context, jobs []entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.jobs = append([]entity.Job{}, jobs...)
	return nil
}

type TrackerHandlerTestSuite struct {
	suite.Suite
	now    time.Time
	repo   *memoryRepo
	svc    *usecase.JobService
	hub    *Hub
	router *mux.Router
}

func (suite *TrackerHandlerTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.now = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: suite.now}
	suite.repo = &memoryRepo{}

	svc, err := usecase.NewJobService(context.Background(), suite.repo, clock, logger)
	require.NoError(suite.T(), err)
	suite.svc = svc
	suite.hub = NewHub(logger)
	svc.OnChange(suite.hub.Broadcast)

	h := NewTrackerHandler(svc, suite.hub, clock, prometheus.NewRegistry(), logger)
	suite.router = mux.NewRouter()
	h.RegisterRoutes(suite.router)
}

func (suite *TrackerHandlerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (suite *TrackerHandlerTestSuite) addJob(company, role string) {
	rec := suite.do(http.MethodPost, "/api/v1/jobs",
		`{"company":"`+company+`","role":"`+role+`","location":"Remote","source":"linkedin"}`)
	require.Equal(suite.T(), http.StatusCreated, rec.Code, rec.Body.String())
}

func (suite *TrackerHandlerTestSuite) TestHealth() {
	rec := suite.do(http.MethodGet, "/api/v1/health", "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.NotEmpty(suite.T(), rec.Header().Get(RequestIDHeader))
}

func (suite *TrackerHandlerTestSuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	assert.Equal(suite.T(), "abc-123", rec.Header().Get(RequestIDHeader))
}

func (suite *TrackerHandlerTestSuite) TestCreateAndList() {
	suite.addJob("Acme", "Engineer")
	suite.addJob("Globex", "PM")

	rec := suite.do(http.MethodGet, "/api/v1/jobs", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	jobs := decode[[]entity.Job](suite.T(), rec)
	require.Len(suite.T(), jobs, 2)
	assert.Equal(suite.T(), uint32(1), jobs[0].ID)
	assert.Equal(suite.T(), entity.JobSourceLinkedIn, jobs[0].Source)
	assert.Equal(suite.T(), entity.JobStatusApplied, jobs[1].Status)

	rec = suite.do(http.MethodGet, "/api/v1/jobs?q=GLOB", "")
	jobs = decode[[]entity.Job](suite.T(), rec)
	require.Len(suite.T(), jobs, 1)
	assert.Equal(suite.T(), "Globex", jobs[0].Company)

	rec = suite.do(http.MethodGet, "/api/v1/jobs?q=nomatch", "")
	assert.JSONEq(suite.T(), "[]", rec.Body.String())
}

func (suite *TrackerHandlerTestSuite) TestCreateValidation() {
	rec := suite.do(http.MethodPost, "/api/v1/jobs", `{"company":"  ","role":"Engineer"}`)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)

	rec = suite.do(http.MethodPost, "/api/v1/jobs", `{`)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Empty(suite.T(), suite.svc.List(context.Background()))
}

func (suite *TrackerHandlerTestSuite) TestCreateSaveFailure() {
	suite.repo.saveErr = repository.ErrWrite

	rec := suite.do(http.MethodPost, "/api/v1/jobs", `{"company":"Acme","role":"Engineer"}`)
	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)
	assert.Contains(suite.T(), decode[map[string]string](suite.T(), rec)["error"], "write")
	assert.Len(suite.T(), suite.svc.List(context.Background()), 1)
}

func (suite *TrackerHandlerTestSuite) TestGetJob() {
	suite.addJob("Acme", "Engineer")

	rec := suite.do(http.MethodGet, "/api/v1/jobs/1", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Equal(suite.T(), "Acme", decode[entity.Job](suite.T(), rec).Company)

	rec = suite.do(http.MethodGet, "/api/v1/jobs/9", "")
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/jobs/99999999999", "")
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *TrackerHandlerTestSuite) TestUpdateJob() {
	suite.addJob("Acme", "Engineer")

	rec := suite.do(http.MethodPatch, "/api/v1/jobs/1",
		`{"status":"interview","source":"talent.com","company":"Acme Corp","timestamp":"2025-05-01 08:00:00"}`)
	require.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())

	job := decode[entity.Job](suite.T(), rec)
	assert.Equal(suite.T(), entity.JobStatusInterview, job.Status)
	assert.Equal(suite.T(), entity.JobSourceTalent, job.Source)
	assert.Equal(suite.T(), "Acme Corp", job.Company)
	assert.Equal(suite.T(), time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC), job.Timestamp)
	assert.Equal(suite.T(), job, suite.repo.jobs[0])
}

func (suite *TrackerHandlerTestSuite) TestUpdateJobRejectsBadInput() {
	suite.addJob("Acme", "Engineer")

	for _, body := range []string{
		`{"status":"hired"}`,
		`{"timestamp":"yesterday"}`,
		`{"company":""}`,
		`{"status":"Offer","timestamp":"nope"}`,
	} {
		rec := suite.do(http.MethodPatch, "/api/v1/jobs/1", body)
		assert.Equal(suite.T(), http.StatusBadRequest, rec.Code, body)
	}

	job, _ := suite.svc.Get(context.Background(), 1)
	assert.Equal(suite.T(), entity.JobStatusApplied, job.Status)

	rec := suite.do(http.MethodPatch, "/api/v1/jobs/7", `{"status":"Offer"}`)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
}

func (suite *TrackerHandlerTestSuite) TestDeleteJob() {
	suite.addJob("Acme", "Engineer")
	suite.addJob("Globex", "PM")

	rec := suite.do(http.MethodDelete, "/api/v1/jobs/1", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	jobs := decode[[]entity.Job](suite.T(), rec)
	require.Len(suite.T(), jobs, 1)
	assert.Equal(suite.T(), uint32(2), jobs[0].ID)

	rec = suite.do(http.MethodDelete, "/api/v1/jobs/1", "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Len(suite.T(), decode[[]entity.Job](suite.T(), rec), 1)
}

func (suite *TrackerHandlerTestSuite) TestSummary() {
	suite.addJob("Acme", "Engineer")
	suite.addJob("Globex", "PM")
	_, err := suite.svc.UpdateStatus(context.Background(), 2, entity.JobStatusRejected)
	require.NoError(suite.T(), err)

	rec := suite.do(http.MethodGet, "/api/v1/summary", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	resp := decode[map[string]any](suite.T(), rec)
	assert.Equal(suite.T(), 2.0, resp["total"])
	assert.Equal(suite.T(), 1.0, resp["rejected"])
	assert.Equal(suite.T(), 50.0, resp["rejection_rate"])
	assert.Equal(suite.T(), 0.0, resp["interview_rate"])
}

func (suite *TrackerHandlerTestSuite) TestTimelineAndResolve() {
	suite.addJob("Acme", "Engineer")
	suite.addJob("Globex", "PM")
	_, err := suite.svc.UpdateTimestamp(context.Background(), 1, suite.now.AddDate(0, 0, -2))
	require.NoError(suite.T(), err)

	rec := suite.do(http.MethodGet, "/api/v1/timeline", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	tl := decode[timelineResp](suite.T(), rec)
	require.Len(suite.T(), tl.Days, 3)
	assert.Equal(suite.T(), "2025-05-08", tl.Days[0].Date)
	assert.Equal(suite.T(), []uint32{1}, tl.Days[0].JobIDs)
	assert.Empty(suite.T(), tl.Days[1].JobIDs)
	assert.Equal(suite.T(), []uint32{2}, tl.Days[2].JobIDs)
	assert.Equal(suite.T(), "05/08", tl.Labels[0])
	require.Len(suite.T(), tl.Placements, 2)
	assert.Equal(suite.T(), "#4169e1", tl.Placements[0].Color)

	rec = suite.do(http.MethodGet, "/api/v1/timeline/resolve?x=2.3&y=0.9", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	resolved := decode[resolveResp](suite.T(), rec)
	assert.Equal(suite.T(), uint32(2), resolved.Job.ID)
	assert.Equal(suite.T(), "Globex", resolved.Query)

	rec = suite.do(http.MethodGet, "/api/v1/timeline/resolve?x=1&y=0.5", "")
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/timeline/resolve?x=a&y=0", "")
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
}

func (suite *TrackerHandlerTestSuite) TestReload() {
	suite.repo.jobs = []entity.Job{{ID: 4, Company: "Initech", Role: "QA", Status: entity.JobStatusOffer, Timestamp: suite.now}}
	assert.Empty(suite.T(), suite.svc.List(context.Background()))

	rec := suite.do(http.MethodPost, "/api/v1/reload", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Len(suite.T(), decode[[]entity.Job](suite.T(), rec), 1)
	assert.Len(suite.T(), suite.svc.List(context.Background()), 1)
}

func (suite *TrackerHandlerTestSuite) TestMetricsEndpoint() {
	suite.do(http.MethodGet, "/api/v1/health", "")

	rec := suite.do(http.MethodGet, "/metrics", "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `http_requests_total{method="GET",path="/api/v1/health"} 1`)
}

func (suite *TrackerHandlerTestSuite) TestWebsocketReceivesSnapshots() {
	srv := httptest.NewServer(suite.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(suite.T(), err)
	defer conn.Close()

	read := func() wsMessage {
		require.NoError(suite.T(), conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg wsMessage
		require.NoError(suite.T(), conn.ReadJSON(&msg))
		return msg
	}

	initial := read()
	assert.Equal(suite.T(), "jobs", initial.Type)
	assert.Empty(suite.T(), initial.Jobs)

	_, err = suite.svc.Add(context.Background(), "Acme", "Engineer", "", "")
	require.NoError(suite.T(), err)

	update := read()
	require.Len(suite.T(), update.Jobs, 1)
	assert.Equal(suite.T(), "Acme", update.Jobs[0].Company)
}

func TestTrackerHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerHandlerTestSuite))
}
