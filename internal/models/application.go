package models

import (
	"time"

	"gorm.io/datatypes"
)

type ApplicationStatus string

const (
	StatusPending         ApplicationStatus = "pending"
	StatusAccepted        ApplicationStatus = "accepted"
	StatusRejected        ApplicationStatus = "rejected"
	StatusSentToInterview ApplicationStatus = "sent_to_interview"
)

type Candidate struct {
	ID        uint      `gorm:"primaryKey" json:"candidate_id"`
	FullName  *string   `gorm:"type:text" json:"full_name"`
	Email     *string   `gorm:"type:text" json:"email"`
	Phone     *string   `gorm:"type:text" json:"phone"`
	Address   *string   `gorm:"type:text" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Application is one candidate's attempt at one job.
type Application struct {
	ID             uint              `gorm:"primaryKey" json:"application_id"`
	CandidateID    uint              `gorm:"index;not null" json:"candidate_id"`
	JobID          uint              `gorm:"index;not null" json:"job_id"`
	Status         ApplicationStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	TagNeedsReview bool              `gorm:"not null;default:false" json:"tag_needs_review"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (Application) TableName() string {
	return "candidate_applications"
}

type CvRecord struct {
	ID             uint      `gorm:"primaryKey" json:"cv_id"`
	ApplicationID  uint      `gorm:"uniqueIndex;not null" json:"application_id"`
	CvURL          string    `gorm:"type:text;not null" json:"cv_url"`
	FileSize       *int64    `json:"file_size"`
	MimeType       *string   `gorm:"type:text" json:"mime_type"`
	CvText         string    `gorm:"type:text;not null;default:''" json:"cv_text"`
	ParsedKeywords string    `gorm:"type:text;not null;default:''" json:"parsed_keywords"`
	TechnicalScore *int      `json:"technical_score"`
	UploadedAt     time.Time `gorm:"not null" json:"uploaded_at"`
}

func (CvRecord) TableName() string {
	return "cv_data"
}

// VideoSubmission is unique per (application_id, question_index).
type VideoSubmission struct {
	ID                    uint      `gorm:"primaryKey" json:"video_id"`
	ApplicationID         uint      `gorm:"uniqueIndex:idx_video_app_question;not null" json:"application_id"`
	QuestionIndex         int       `gorm:"uniqueIndex:idx_video_app_question;not null" json:"question_index"`
	QuestionText          string    `gorm:"type:text" json:"question_text"`
	VideoURL              string    `gorm:"type:text;not null" json:"video_url"`
	VideoFileKey          *string   `gorm:"type:text" json:"video_file_key"`
	FileSize              *int64    `json:"file_size"`
	MimeType              *string   `gorm:"type:text" json:"mime_type"`
	AudioTranscript       *string   `gorm:"type:text" json:"audio_transcript"`
	FacePresenceRatio     *float64  `json:"face_presence_ratio"`
	CameraEngagementRatio *float64  `json:"camera_engagement_ratio"`
	YawVariance           *float64  `json:"yaw_variance"`
	ConfidenceScore       *int      `json:"confidence_score"`
	Clarity               *int      `json:"clarity"`
	AnswerRelevance       *int      `json:"answer_relevance"`
	Summary               *string   `gorm:"type:text" json:"summary"`
	CreatedAt             time.Time `json:"created_at"`
}

func (VideoSubmission) TableName() string {
	return "video_submissions"
}

// Assessment is created empty with its application and filled in by the CV and video stages.
// ConfidenceScore, Clarity, AnswerRelevance, SpeechAnalysis and SpeechLLMOutput are no longer
// written; per-question metrics live on VideoSubmission.
type Assessment struct {
	ID                 uint           `gorm:"primaryKey" json:"assessment_id"`
	ApplicationID      uint           `gorm:"uniqueIndex;not null" json:"application_id"`
	CvScore            *int           `json:"cv_score"`
	CvRecommendation   *string        `gorm:"type:text" json:"cv_recommendation"`
	CvMatchingAnalysis *string        `gorm:"type:text" json:"cv_matching_analysis"`
	CvReasonSummary    *string        `gorm:"type:text" json:"cv_reason_summary"`
	CvJdOutput         datatypes.JSON `json:"cv_jd_output"`
	VideoScore         *int           `json:"video_score"`
	TotalScore         *int           `json:"total_score"`
	ConfidenceScore    *int           `json:"confidence_score"`
	Clarity            *int           `json:"clarity"`
	AnswerRelevance    *int           `json:"answer_relevance"`
	SpeechAnalysis     *string        `gorm:"type:text" json:"speech_analysis"`
	SpeechLLMOutput    datatypes.JSON `json:"speech_llm_output"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (Assessment) TableName() string {
	return "ai_assessments"
}

// ApplicationDecision is the audit row for the latest recruiter decision on an application.
type ApplicationDecision struct {
	ID            uint              `gorm:"primaryKey" json:"decision_id"`
	ApplicationID uint              `gorm:"uniqueIndex;not null" json:"application_id"`
	RecruiterID   uint              `gorm:"index;not null" json:"recruiter_id"`
	Decision      string            `gorm:"type:text;not null" json:"decision"`
	Status        ApplicationStatus `gorm:"type:text;not null" json:"status"`
	DecidedAt     time.Time         `gorm:"not null" json:"decided_at"`
}

func (ApplicationDecision) TableName() string {
	return "application_decisions"
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&Recruiter{},
		&Job{},
		&JobQuestion{},
		&Candidate{},
		&Application{},
		&CvRecord{},
		&VideoSubmission{},
		&Assessment{},
		&ApplicationDecision{},
	}
}
