package models

// SelectedJob is the job snapshot a candidate picked at the start of the flow.
type SelectedJob struct {
	JobID          string  `json:"job_id"`
	Title          *string `json:"title,omitempty"`
	Location       *string `json:"location,omitempty"`
	CompanyName    *string `json:"company_name,omitempty"`
	BranchName     *string `json:"branch_name,omitempty"`
	JobDescription *string `json:"job_description,omitempty"`
}

type CVURLRequest struct {
	FileURL  string  `json:"file_url"`
	FileSize *int64  `json:"file_size"`
	MimeType *string `json:"mime_type"`
}

type VideoURLRequest struct {
	FileURL       string  `json:"file_url"`
	FileKey       *string `json:"file_key"`
	FileSize      *int64  `json:"file_size"`
	MimeType      *string `json:"mime_type"`
	QuestionIndex *int    `json:"question_index"`
	QuestionText  string  `json:"question_text"`
}

type ReviewInfoRequest struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
}

type CandidateOverview struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type CVSubmission struct {
	Candidate   *Candidate   `json:"candidate"`
	Application *Application `json:"application"`
	CvRecord    *CvRecord    `json:"cv"`
}

type VideoSubmissionResult struct {
	ApplicationID uint             `json:"application_id"`
	QuestionIndex int              `json:"question_index"`
	Video         *VideoSubmission `json:"video"`
}

type AnalysisStatusResponse struct {
	Pending bool `json:"pending"`
}

type VideoProgress struct {
	Percent  int  `json:"percent"`
	Complete bool `json:"complete"`
}

type JobRequest struct {
	RecruiterID       uint     `json:"recruiterId"`
	Title             string   `json:"title"`
	CompanyName       string   `json:"companyName"`
	BranchName        string   `json:"branchName"`
	Location          string   `json:"location"`
	Skills            []string `json:"skills"`
	MinExperience     int      `json:"minExperience"`
	OtherRequirements string   `json:"otherRequirements"`
	WorkMode          []string `json:"workMode"`
	Salary            int      `json:"salary"`
	CVWeight          int      `json:"cvWeight"`
	VideoWeight       int      `json:"videoWeight"`
	Questions         []string `json:"questions"`
}

type JobStatusRequest struct {
	Status string `json:"status"`
}

type DecisionRequest struct {
	Decision string `json:"decision"`
}

type ApplicantRow struct {
	ApplicationID uint              `json:"application_id"`
	CandidateID   uint              `json:"candidate_id"`
	JobID         uint              `json:"job_id"`
	Status        ApplicationStatus `json:"status"`
	CandidateName *string           `json:"candidate_name"`
	NeedsReview   bool              `json:"tag_needs_review"`
	CvScore       *int              `json:"cv_score"`
	VideoScore    *int              `json:"video_score"`
	TotalScore    *int              `json:"total_score"`
	VideoProgress *VideoProgress    `gorm:"-" json:"video_progress,omitempty"`
}

// JobForCandidate is the job listing shape used by the candidate job picker.
type JobForCandidate struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	CompanyName         string   `json:"company_name"`
	BranchName          string   `json:"branch_name"`
	JobDescription      string   `json:"job_description"`
	Status              string   `json:"status"`
	Location            string   `json:"location"`
	Type                string   `json:"type"`
	MinExperience       int      `json:"minExperience"`
	Skills              []string `json:"skills"`
	WorkMode            []string `json:"workMode"`
	Salary              int      `json:"salary"`
	OtherRequirements   string   `json:"otherRequirements"`
	CVScoreWeightage    int      `json:"cv_score_weightage"`
	VideoScoreWeightage int      `json:"video_score_weightage"`
}
