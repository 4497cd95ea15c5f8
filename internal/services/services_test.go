package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/repositories"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStores(t *testing.T) (*gorm.DB, Stores) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))

	return db, Stores{
		Candidates:   repositories.NewCandidateRepository(db),
		Jobs:         repositories.NewJobRepository(db),
		Applications: repositories.NewApplicationRepository(db),
		CVs:          repositories.NewCvRepository(db),
		Videos:       repositories.NewVideoRepository(db),
		Assessments:  repositories.NewAssessmentRepository(db),
		Recruiters:   repositories.NewRecruiterRepository(db),
	}
}

// seedJobWithID inserts an open job with a fixed primary key and 60/40 weightage.
func seedJobWithID(t *testing.T, db *gorm.DB, id uint, questions ...string) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:                  id,
		Title:               "Cashier",
		CompanyName:         "RetailCo",
		JobDescription:      `{"job_title":"Cashier","skills":["Cash Handling"],"other_requirements":""}`,
		Status:              models.JobStatusOpen,
		CVScoreWeightage:    60,
		VideoScoreWeightage: 40,
	}
	require.NoError(t, db.Omit("Questions").Create(job).Error)
	for i, q := range questions {
		require.NoError(t, db.Create(&models.JobQuestion{JobID: id, Position: i, QuestionText: q}).Error)
	}
	return job
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newMediaServer serves a fixed body with the given content type for every path.
func newMediaServer(t *testing.T, contentType string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte("%PDF-1.4 fake media body"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeCVScorer struct {
	body  string
	calls int
}

func (f *fakeCVScorer) Score(ctx context.Context, filePath, jobDescription string) ([]byte, error) {
	f.calls++
	return []byte(f.body), nil
}

type fakeVideoScorer struct {
	body      string
	err       error
	calls     int
	lastRole  string
	lastQuery string
}

func (f *fakeVideoScorer) Score(ctx context.Context, filePath, role, question string) ([]byte, error) {
	f.calls++
	f.lastRole = role
	f.lastQuery = question
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

// syncDispatcher runs stages inline so tests observe their writes deterministically.
type syncDispatcher struct {
	runner StageRunner
	jobs   []StageJob
}

func (d *syncDispatcher) Dispatch(ctx context.Context, job StageJob) error {
	d.jobs = append(d.jobs, job)
	if d.runner == nil {
		return nil
	}
	switch job.Kind {
	case StageCV:
		return d.runner.RunCVStage(ctx, job.ApplicationID, job.JobDescription)
	case StageVideo:
		return d.runner.RunVideoStage(ctx, job.ApplicationID, job.QuestionIndex)
	}
	return nil
}

var testPolicy = RetryPolicy{MaxAttempts: 4, Delay: time.Millisecond, AttemptTimeout: 2 * time.Second}

type testPipeline struct {
	db       *gorm.DB
	stores   Stores
	pipeline *Pipeline
	status   *StatusProjector
	cv       *fakeCVScorer
	video    *fakeVideoScorer
	dispatch *syncDispatcher
	media    *httptest.Server
}

func newTestPipeline(t *testing.T, cvBody, videoBody string) *testPipeline {
	t.Helper()
	db, stores := newTestStores(t)
	log := zap.NewNop()

	cv := &fakeCVScorer{body: cvBody}
	video := &fakeVideoScorer{body: videoBody}
	gateway := NewInferenceGateway(cv, video, testPolicy, testPolicy, log, nil)
	fetcher := NewMediaFetcher(t.TempDir(), 0, nil)
	runner := NewStageRunner(stores, gateway, fetcher, log)
	dispatch := &syncDispatcher{runner: runner}
	status := NewStatusProjector(stores, 45*time.Second, time.Second, log)

	return &testPipeline{
		db:       db,
		stores:   stores,
		pipeline: NewPipeline(stores, NewMemoryFlowStore(time.Hour), dispatch, status, log),
		status:   status,
		cv:       cv,
		video:    video,
		dispatch: dispatch,
		media:    newMediaServer(t, "application/pdf"),
	}
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }
