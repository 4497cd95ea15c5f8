package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recruitflow/assessment-api/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	db          *gorm.DB
	jobs        JobRepository
	apps        ApplicationRepository
	candidates  CandidateRepository
	cvs         CvRepository
	videos      VideoRepository
	assessments AssessmentRepository
	recruiters  RecruiterRepository
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	return &fixture{
		db:          db,
		jobs:        NewJobRepository(db),
		apps:        NewApplicationRepository(db),
		candidates:  NewCandidateRepository(db),
		cvs:         NewCvRepository(db),
		videos:      NewVideoRepository(db),
		assessments: NewAssessmentRepository(db),
		recruiters:  NewRecruiterRepository(db),
	}
}

func (f *fixture) seedJob(t *testing.T, withRecruiter bool, questions ...string) *models.Job {
	t.Helper()
	ctx := context.Background()

	fields := JobFields{
		Title:               "Cashier",
		CompanyName:         "RetailCo",
		Location:            "DHA, Karachi",
		Skills:              []string{"Cash Handling"},
		CVScoreWeightage:    60,
		VideoScoreWeightage: 40,
	}
	if withRecruiter {
		rec, err := f.recruiters.FindOrCreateByEmail(ctx, &models.Recruiter{
			FullName: "Sana Recruiter",
			Email:    "sana@retailco.test",
		})
		require.NoError(t, err)
		fields.RecruiterID = &rec.ID
	}

	job, err := f.jobs.Create(ctx, fields, questions)
	require.NoError(t, err)
	return job
}

func (f *fixture) seedApplication(t *testing.T, jobID uint) (*models.Candidate, *models.Application) {
	t.Helper()
	ctx := context.Background()

	candidate, err := f.candidates.CreateMinimal(ctx)
	require.NoError(t, err)
	app, err := f.apps.Create(ctx, candidate.ID, jobID)
	require.NoError(t, err)
	require.NoError(t, f.assessments.InsertEmpty(ctx, app.ID))
	return candidate, app
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }
