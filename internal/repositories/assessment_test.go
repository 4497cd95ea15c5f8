package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recruitflow/assessment-api/internal/apperrors"
	"recruitflow/assessment-api/internal/models"
)

func TestAssessmentRepository_InsertEmptyTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.seedJob(t, false)
	_, app := f.seedApplication(t, job.ID)

	require.NoError(t, f.assessments.InsertEmpty(ctx, app.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Assessment{}).Where("application_id = ?", app.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAssessmentRepository_UpsertCVFieldsLeavesVideoColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.seedJob(t, false)
	_, app := f.seedApplication(t, job.ID)

	require.NoError(t, f.assessments.UpdateScores(ctx, app.ID, intPtr(70), intPtr(70)))
	require.NoError(t, f.assessments.UpsertCVFields(ctx, app.ID, CVAssessmentFields{
		CvScore:            intPtr(82),
		CvRecommendation:   strPtr("Shortlist"),
		CvMatchingAnalysis: strPtr("Skills match\nExperience match"),
		CvReasonSummary:    strPtr("Solid retail background"),
		CvJdOutput:         datatypes.JSON(`{"Total_score":82}`),
	}))

	row, err := f.assessments.FindByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, 82, *row.CvScore)
	assert.Equal(t, "Shortlist", *row.CvRecommendation)
	assert.JSONEq(t, `{"Total_score":82}`, string(row.CvJdOutput))
	require.NotNil(t, row.VideoScore)
	assert.Equal(t, 70, *row.VideoScore)
	assert.Equal(t, 70, *row.TotalScore)
}

func TestAssessmentRepository_UpsertCVFieldsCreatesMissingRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.assessments.UpsertCVFields(ctx, 31, CVAssessmentFields{CvScore: intPtr(10)}))

	row, err := f.assessments.FindByApplication(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, 10, *row.CvScore)
	assert.Nil(t, row.VideoScore)
}

func TestAssessmentRepository_LegacySpeechIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.seedJob(t, false)
	_, app := f.seedApplication(t, job.ID)

	require.NoError(t, f.assessments.UpdateLegacySpeech(ctx, app.ID, SpeechAssessmentFields{
		ConfidenceScore: intPtr(90),
		SpeechAnalysis:  strPtr("clear answer"),
	}))

	row, err := f.assessments.FindByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, row.ConfidenceScore)
	assert.Nil(t, row.SpeechAnalysis)
}

// ==========================
// Storage failure mapping
// ==========================

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRepositories_MapDriverErrorsToStorage(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ai_assessments"`)).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := NewAssessmentRepository(db).FindByApplication(ctx, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorage))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "cv_data"`)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err = NewCvRepository(db).UpdateAnalysis(ctx, 1, " ", "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindStorage))
	assert.Contains(t, err.Error(), "update cv analysis")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositories_MapMissingRowToNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "candidate_applications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "candidate_id", "job_id", "status"}))

	_, err := NewApplicationRepository(db).FindByID(context.Background(), 9)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
