package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCVResult_KeyVariantsAndFractionScore(t *testing.T) {
	res := NormalizeCVResult(decodePayload([]byte(`{"Email_Address":"a@b.com","Total Score":0.76}`)))

	assert.Equal(t, "a@b.com", res.Email)
	require.NotNil(t, res.TotalScore)
	assert.Equal(t, 76, *res.TotalScore)
	assert.Equal(t, "", res.Name)
	assert.NotNil(t, res.MatchingAnalysis)
	assert.Empty(t, res.Error)
}

func TestNormalizeCVResult_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       interface{}
		wantName  string
		wantScore *int
	}{
		{
			name:      "fenced json string",
			raw:       "```json\n{\"name\": \"Sara\", \"Total_score\": 64}\n```",
			wantName:  "Sara",
			wantScore: intPtr(64),
		},
		{
			name:      "single quoted json",
			raw:       "{'name': 'Sara', 'score': 0.5}",
			wantName:  "Sara",
			wantScore: intPtr(50),
		},
		{
			name:      "json embedded in prose",
			raw:       `Here is the result: {"name": "Sara", "Total_score": "88"} hope it helps`,
			wantName:  "Sara",
			wantScore: intPtr(88),
		},
		{
			name: "list wrapping an object",
			raw: []interface{}{
				map[string]interface{}{"name": "Sara", "Total_score": float64(91)},
			},
			wantName:  "Sara",
			wantScore: intPtr(91),
		},
		{
			name:      "list wrapping a json string",
			raw:       []interface{}{`{"name":"Sara","Total_score":12}`},
			wantName:  "Sara",
			wantScore: intPtr(12),
		},
		{
			name:      "out of range score is dropped",
			raw:       map[string]interface{}{"name": "Sara", "Total_score": float64(140)},
			wantName:  "Sara",
			wantScore: nil,
		},
		{
			name:      "garbage",
			raw:       "the model is sleeping",
			wantScore: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NormalizeCVResult(tt.raw)
			assert.Equal(t, tt.wantName, res.Name)
			assert.Equal(t, tt.wantScore, res.TotalScore)
		})
	}
}

func TestNormalizeCVResult_KeepsUnknownKeysInRaw(t *testing.T) {
	res := NormalizeCVResult(map[string]interface{}{
		"name":              "Sara",
		"matching_analysis": "Strong cash handling",
		"years_experience":  float64(3),
	})

	assert.Equal(t, []interface{}{"Strong cash handling"}, res.MatchingAnalysis)
	raw := res.Raw()
	assert.Equal(t, float64(3), raw["years_experience"])
	assert.Equal(t, "Sara", raw["name"])
	_, hasError := raw["error"]
	assert.False(t, hasError)
}

func TestNormalizeVideoResult_FlattensNestedShape(t *testing.T) {
	res := NormalizeVideoResult(decodePayload([]byte(videoScorerBody)))

	require.NotNil(t, res.ConfidenceScore)
	assert.Equal(t, 70, *res.ConfidenceScore)
	assert.Equal(t, 5, *res.Clarity)
	assert.Equal(t, 4, *res.Relevance)
	assert.Equal(t, "Friendly and clear", *res.Summary)
	assert.Equal(t, "I enjoy helping customers find what they need.", *res.Transcript)
	assert.InDelta(t, 0.92, *res.FacePresenceRatio, 1e-9)
	assert.InDelta(t, 3.5, *res.YawVariance, 1e-9)
	assert.True(t, res.NeedsReview)
}

func TestNormalizeVideoResult_DeepLookupAndFallbacks(t *testing.T) {
	res := NormalizeVideoResult(map[string]interface{}{
		"result": map[string]interface{}{
			"Confidence_Score": "85",
			"details":          map[string]interface{}{"clarity": "4"},
		},
		"needs_review": "no",
	})

	require.NotNil(t, res.ConfidenceScore)
	assert.Equal(t, 85, *res.ConfidenceScore)
	require.NotNil(t, res.Clarity)
	assert.Equal(t, 4, *res.Clarity)
	assert.Nil(t, res.Relevance)
	assert.Nil(t, res.Summary)
	assert.False(t, res.NeedsReview)
}

func TestCoerceScore(t *testing.T) {
	tests := []struct {
		in   interface{}
		want *int
	}{
		{float64(0.82), intPtr(82)},
		{float64(1), intPtr(100)},
		{float64(0), intPtr(0)},
		{float64(73.4), intPtr(73)},
		{"0.5", intPtr(50)},
		{float64(-3), nil},
		{float64(101), nil},
		{"n/a", nil},
		{nil, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coerceScore(tt.in), "coerceScore(%v)", tt.in)
	}
}
