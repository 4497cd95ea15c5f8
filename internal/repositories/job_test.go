package repositories

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

func TestValidateWeightage(t *testing.T) {
	for cv := -150; cv <= 250; cv += 7 {
		for video := -150; video <= 250; video += 11 {
			err := ValidateWeightage(cv, video)
			if cv+video == 100 {
				assert.NoError(t, err, "cv=%d video=%d", cv, video)
			} else {
				assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "cv=%d video=%d", cv, video)
			}
		}
	}

	assert.NoError(t, ValidateWeightage(-20, 120))
	assert.NoError(t, ValidateWeightage(100, 0))
	assert.Error(t, ValidateWeightage(50, 49))
}

func TestJobRepository_CreateRejectsBadWeightage(t *testing.T) {
	f := newFixture(t)

	_, err := f.jobs.Create(context.Background(), JobFields{
		Title:               "Store Worker",
		CVScoreWeightage:    70,
		VideoScoreWeightage: 40,
	}, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	var count int64
	require.NoError(t, f.db.Model(&models.Job{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestJobRepository_CreateWithQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job := f.seedJob(t, true, "Tell us about yourself", "  ", "Why this role?")

	found, err := f.jobs.FindByID(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, found.Questions, 2)
	assert.Equal(t, "Tell us about yourself", found.Questions[0].QuestionText)
	assert.Equal(t, "Why this role?", found.Questions[1].QuestionText)
	assert.Equal(t, []string{"Cash Handling"}, found.SkillList())

	var desc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(found.JobDescription), &desc))
	assert.Equal(t, "Cashier", desc["job_title"])

	count, err := f.jobs.CountQuestions(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestJobRepository_UpdateReplacesQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.seedJob(t, true, "Q1", "Q2", "Q3")

	_, err := f.jobs.Update(ctx, job.ID, JobFields{Title: "Senior Cashier", CVScoreWeightage: 30, VideoScoreWeightage: 80}, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	updated, err := f.jobs.Update(ctx, job.ID, JobFields{
		Title:               "Senior Cashier",
		CVScoreWeightage:    75,
		VideoScoreWeightage: 25,
	}, []string{"Only question"})
	require.NoError(t, err)

	assert.Equal(t, "Senior Cashier", updated.Title)
	assert.Equal(t, 75, updated.CVScoreWeightage)
	require.Len(t, updated.Questions, 1)
	assert.Equal(t, "Only question", updated.Questions[0].QuestionText)

	_, err = f.jobs.Update(ctx, 999, JobFields{CVScoreWeightage: 50, VideoScoreWeightage: 50}, nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobRepository_StatusAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.seedJob(t, true)
	closed := f.seedJob(t, true)

	_, err := f.jobs.UpdateStatus(ctx, closed.ID, models.JobStatusClosed)
	require.NoError(t, err)

	_, err = f.jobs.UpdateStatus(ctx, open.ID, "archived")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	jobs, err := f.jobs.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, open.ID, jobs[0].ID)

	mine, err := f.jobs.ListForRecruiter(ctx, *open.RecruiterID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestJobRepository_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.seedJob(t, true, "Q1")
	_, app := f.seedApplication(t, job.ID)

	_, err := f.cvs.Create(ctx, app.ID, "https://files.test/cv.pdf", nil, nil)
	require.NoError(t, err)
	_, err = f.videos.Upsert(ctx, VideoUpload{ApplicationID: app.ID, QuestionIndex: 0, VideoURL: "https://files.test/q0.mp4"})
	require.NoError(t, err)

	require.NoError(t, f.jobs.Delete(ctx, job.ID))

	for _, model := range []interface{}{
		&models.Job{}, &models.JobQuestion{}, &models.Application{},
		&models.CvRecord{}, &models.VideoSubmission{}, &models.Assessment{},
	} {
		var count int64
		require.NoError(t, f.db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}

	assert.True(t, apperrors.IsNotFound(f.jobs.Delete(ctx, job.ID)))
}
