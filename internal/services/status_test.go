package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/repositories"
)

// stubCvRepo answers IsAnalysisComplete after an optional delay; other methods are unused.
type stubCvRepo struct {
	repositories.CvRepository
	delay    time.Duration
	complete bool
	err      error
}

func (s *stubCvRepo) IsAnalysisComplete(ctx context.Context, applicationID uint, fallbackAge time.Duration, now time.Time) (bool, error) {
	time.Sleep(s.delay)
	return s.complete, s.err
}

func newStubProjector(repo repositories.CvRepository, timeout time.Duration) *StatusProjector {
	return NewStatusProjector(Stores{CVs: repo}, 45*time.Second, timeout, zap.NewNop())
}

func TestCVAnalysisPending_FailsOpenOnSlowStore(t *testing.T) {
	p := newStubProjector(&stubCvRepo{delay: 200 * time.Millisecond, complete: false}, 20*time.Millisecond)

	started := time.Now()
	pending := p.CVAnalysisPending(context.Background(), 1)

	assert.False(t, pending)
	assert.Less(t, time.Since(started), 150*time.Millisecond)
}

func TestCVAnalysisPending_FailsOpenOnStoreError(t *testing.T) {
	p := newStubProjector(&stubCvRepo{err: errors.New("connection refused")}, time.Second)

	assert.False(t, p.CVAnalysisPending(context.Background(), 1))
}

func TestCVAnalysisPending_ReflectsStore(t *testing.T) {
	assert.True(t, newStubProjector(&stubCvRepo{complete: false}, time.Second).CVAnalysisPending(context.Background(), 1))
	assert.False(t, newStubProjector(&stubCvRepo{complete: true}, time.Second).CVAnalysisPending(context.Background(), 1))
}

func TestCVAnalysisPending_AgeFallback(t *testing.T) {
	db, stores := newTestStores(t)
	ctx := context.Background()
	seedJobWithID(t, db, 1)
	app, err := stores.Applications.Create(ctx, 1, 1)
	require.NoError(t, err)
	_, err = stores.CVs.Create(ctx, app.ID, "https://files.test/cv.pdf", nil, nil)
	require.NoError(t, err)

	p := NewStatusProjector(stores, 45*time.Second, time.Second, zap.NewNop())

	p.now = func() time.Time { return time.Now().Add(10 * time.Second) }
	assert.True(t, p.CVAnalysisPending(ctx, app.ID), "10s old upload with no results is pending")

	p.now = func() time.Time { return time.Now().Add(46 * time.Second) }
	assert.False(t, p.CVAnalysisPending(ctx, app.ID), "46s old upload falls back to done")
}

func TestComputeVideoProgress(t *testing.T) {
	tests := []struct {
		analyzed, total int64
		want            models.VideoProgress
	}{
		{0, 0, models.VideoProgress{Percent: 100, Complete: true}},
		{0, 3, models.VideoProgress{Percent: 0, Complete: false}},
		{1, 3, models.VideoProgress{Percent: 33, Complete: false}},
		{2, 3, models.VideoProgress{Percent: 67, Complete: false}},
		{2, 4, models.VideoProgress{Percent: 50, Complete: false}},
		{3, 3, models.VideoProgress{Percent: 100, Complete: true}},
		{5, 3, models.VideoProgress{Percent: 100, Complete: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeVideoProgress(tt.analyzed, tt.total), "%d/%d", tt.analyzed, tt.total)
	}
}

func TestVideoProgress_JobWithoutQuestions(t *testing.T) {
	db, stores := newTestStores(t)
	ctx := context.Background()
	seedJobWithID(t, db, 2)
	app, err := stores.Applications.Create(ctx, 1, 2)
	require.NoError(t, err)

	p := NewStatusProjector(stores, 45*time.Second, time.Second, zap.NewNop())
	progress, err := p.VideoProgress(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoProgress{Percent: 100, Complete: true}, progress)
}

func TestVideoProgress_PartialAnswers(t *testing.T) {
	db, stores := newTestStores(t)
	ctx := context.Background()
	seedJobWithID(t, db, 2, "Q1", "Q2", "Q3")
	app, err := stores.Applications.Create(ctx, 1, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := stores.Videos.Upsert(ctx, repositories.VideoUpload{ApplicationID: app.ID, QuestionIndex: i, VideoURL: "https://files.test/v.mp4"})
		require.NoError(t, err)
	}
	require.NoError(t, stores.Videos.UpdateMetrics(ctx, app.ID, 0, repositories.VideoMetrics{ConfidenceScore: intPtr(60)}))

	p := NewStatusProjector(stores, 45*time.Second, time.Second, zap.NewNop())
	progress, err := p.VideoProgress(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VideoProgress{Percent: 33, Complete: false}, progress)
}
