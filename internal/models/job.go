package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"
)

type Recruiter struct {
	ID          uint      `gorm:"primaryKey" json:"recruiter_id"`
	FullName    string    `gorm:"type:text;not null" json:"full_name"`
	Email       string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	CompanyName string    `gorm:"type:text" json:"company_name"`
	Status      string    `gorm:"type:text;not null;default:'active'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Recruiter) TableName() string {
	return "recruiters"
}

type Job struct {
	ID                     uint           `gorm:"primaryKey" json:"job_id"`
	RecruiterID            *uint          `gorm:"index" json:"recruiter_id"`
	Title                  string         `gorm:"type:text;not null" json:"title"`
	CompanyName            string         `gorm:"type:text" json:"company_name"`
	BranchName             string         `gorm:"type:text" json:"branch_name"`
	JobDescription         string         `gorm:"type:text" json:"job_description"`
	Status                 JobStatus      `gorm:"type:text;not null;default:'open'" json:"status"`
	Skills                 datatypes.JSON `json:"skills"`
	MinimumExperienceYears int            `json:"min_experience"`
	OtherRequirements      string         `gorm:"type:text" json:"other_requirements"`
	Location               string         `gorm:"type:text" json:"location"`
	WorkMode               string         `gorm:"type:text" json:"work_mode"`
	SalaryMonthly          int            `json:"salary"`
	CVScoreWeightage       int            `gorm:"not null;default:50" json:"cv_score_weightage"`
	VideoScoreWeightage    int            `gorm:"not null;default:50" json:"video_score_weightage"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`

	Questions []JobQuestion `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

// SkillList decodes Skills, returning nil when the column is empty or malformed.
func (j *Job) SkillList() []string {
	if len(j.Skills) == 0 {
		return nil
	}
	var skills []string
	if err := json.Unmarshal(j.Skills, &skills); err != nil {
		return nil
	}
	return skills
}

type JobQuestion struct {
	ID           uint   `gorm:"primaryKey" json:"question_id"`
	JobID        uint   `gorm:"index;not null" json:"job_id"`
	Position     int    `gorm:"not null" json:"position"`
	QuestionText string `gorm:"type:text;not null" json:"question_text"`
}

func (JobQuestion) TableName() string {
	return "job_questions"
}
