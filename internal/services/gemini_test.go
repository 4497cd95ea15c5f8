package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGemini struct {
	replies []string
	prompts []string
}

func (f *fakeGemini) GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type fakePDFParser struct {
	text string
	err  error
}

func (f fakePDFParser) ExtractText(filePath string) (string, error) {
	return f.text, f.err
}

func TestGeminiCVScorer_FencedReply(t *testing.T) {
	gemini := &fakeGemini{replies: []string{"```json\n{\"name\":\"Sara Lim\",\"Total_score\":71}\n```"}}
	scorer := NewGeminiCVScorer(gemini, fakePDFParser{text: "Sara Lim, barista, 3 years"}, NewPromptBuilder())

	body, err := scorer.Score(context.Background(), "/tmp/cv.pdf", `{"job_title":"Barista"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Sara Lim","Total_score":71}`, string(body))

	require.Len(t, gemini.prompts, 1)
	assert.Contains(t, gemini.prompts[0], "Sara Lim, barista, 3 years")
	assert.Contains(t, gemini.prompts[0], `{"job_title":"Barista"}`)
}

func TestGeminiCVScorer_GarbageIsRetriedThroughGateway(t *testing.T) {
	gemini := &fakeGemini{replies: []string{
		"I cannot help with that.",
		`{"name":"Sara Lim","description":"Good fit","Total_score":0.64}`,
	}}
	scorer := NewGeminiCVScorer(gemini, fakePDFParser{text: "cv"}, NewPromptBuilder())
	gateway := NewInferenceGateway(scorer, nil, testPolicy, testPolicy, zap.NewNop(), nil)

	cvPath := writeTempFile(t, "cv.pdf", "%PDF-1.4")
	result := gateway.AnalyzeCV(context.Background(), cvPath, "")

	assert.Empty(t, result.Error)
	require.NotNil(t, result.TotalScore)
	assert.Equal(t, 64, *result.TotalScore)
	assert.Len(t, gemini.prompts, 2)
}

func TestGeminiCVScorer_ParserError(t *testing.T) {
	scorer := NewGeminiCVScorer(&fakeGemini{}, fakePDFParser{err: errors.New("failed to open PDF")}, NewPromptBuilder())

	_, err := scorer.Score(context.Background(), "/tmp/cv.pdf", "")
	assert.Error(t, err)
}
