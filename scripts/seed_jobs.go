package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"recruitflow/assessment-api/internal/config"
	"recruitflow/assessment-api/internal/logger"
	"recruitflow/assessment-api/internal/models"
	"recruitflow/assessment-api/internal/repositories"
)

// sampleJobs are inserted once each, matched by title for the seed recruiter.
var sampleJobs = []repositories.JobFields{
	{
		Title:               "Cashier",
		CompanyName:         "RetailCo",
		BranchName:          "Central Mall",
		Location:            "Jakarta",
		WorkMode:            "onsite",
		Salary:              4500000,
		MinExperience:       0,
		Skills:              []string{"Cash Handling", "Customer Service", "POS Systems"},
		OtherRequirements:   "Able to work weekend shifts",
		CVScoreWeightage:    60,
		VideoScoreWeightage: 40,
	},
	{
		Title:               "Barista",
		CompanyName:         "Kopi Nusantara",
		BranchName:          "Sudirman",
		Location:            "Jakarta",
		WorkMode:            "onsite",
		Salary:              4200000,
		MinExperience:       1,
		Skills:              []string{"Espresso", "Latte Art", "Food Safety"},
		CVScoreWeightage:    50,
		VideoScoreWeightage: 50,
	},
	{
		Title:               "Warehouse Associate",
		CompanyName:         "LogiPrima",
		Location:            "Bekasi",
		WorkMode:            "onsite,shift",
		Salary:              5000000,
		MinExperience:       1,
		Skills:              []string{"Forklift", "Inventory", "Picking and Packing"},
		OtherRequirements:   "Valid forklift license preferred",
		CVScoreWeightage:    70,
		VideoScoreWeightage: 30,
	},
}

var sampleQuestions = map[string][]string{
	"Cashier": {
		"Tell us about yourself and why you want to work in retail.",
		"A customer says they were short-changed. How do you handle it?",
	},
	"Barista": {
		"Describe your experience preparing espresso drinks.",
		"How do you keep up with a queue during the morning rush?",
	},
	"Warehouse Associate": {
		"What safety practices do you follow when lifting heavy items?",
		"Tell us about a time you found an inventory discrepancy.",
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zlog := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer zlog.Sync()

	db, err := config.InitDatabase(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx := context.Background()
	recruiter, err := repositories.NewRecruiterRepository(db).FindOrCreateByEmail(ctx, &models.Recruiter{
		FullName:    "Seed Recruiter",
		Email:       "seed.recruiter@example.com",
		CompanyName: "RecruitFlow",
		Status:      "active",
	})
	if err != nil {
		zlog.Fatal("failed to create seed recruiter", zap.Error(err))
	}

	jobs := repositories.NewJobRepository(db)
	existing, err := jobs.ListForRecruiter(ctx, recruiter.ID)
	if err != nil {
		zlog.Fatal("failed to list existing jobs", zap.Error(err))
	}
	seen := make(map[string]bool, len(existing))
	for _, job := range existing {
		seen[job.Title] = true
	}

	created := 0
	for _, fields := range sampleJobs {
		if seen[fields.Title] {
			zlog.Info("job already seeded, skipping", zap.String("title", fields.Title))
			continue
		}
		id := recruiter.ID
		fields.RecruiterID = &id

		job, err := jobs.Create(ctx, fields, sampleQuestions[fields.Title])
		if err != nil {
			zlog.Error("failed to seed job", zap.String("title", fields.Title), zap.Error(err))
			continue
		}
		created++
		zlog.Info("job seeded", zap.Uint("job_id", job.ID), zap.String("title", job.Title))
	}

	zlog.Info("seeding completed", zap.Int("created", created), zap.Int("total", len(sampleJobs)))
}
