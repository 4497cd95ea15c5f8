package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildCVMatchPrompt asks the model for the same object the hosted CV scorer returns, so both
// providers feed NormalizeCVResult.
func (pb *PromptBuilder) BuildCVMatchPrompt(cvText, jobDescription string) string {
	if strings.TrimSpace(jobDescription) == "" {
		jobDescription = "(no job description provided, judge general employability)"
	}

	return fmt.Sprintf(`You are an experienced recruiter screening a CV against a job posting.

JOB POSTING (JSON):
%s

CANDIDATE CV:
%s

Extract the candidate's contact details and judge how well the CV matches the posting.
Use "not provided" for any contact detail the CV does not contain.

Return ONLY a JSON object with exactly these keys:
{
  "name": "<full name>",
  "email": "<email address>",
  "phone_number": "<phone number>",
  "address": "<home address>",
  "description": "<2-3 sentence summary of why the candidate does or does not fit>",
  "matching_analysis": ["<one finding per item, e.g. skill present or missing>"],
  "Total_score": <integer 0-100>,
  "recommendation": "<Shortlist | Consider | Reject>"
}`, strings.TrimSpace(jobDescription), cvText)
}
