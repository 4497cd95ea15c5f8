package services

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// CVAnalysisResult is the canonical CV scorer output. Every field is always readable.
type CVAnalysisResult struct {
	Name             string
	Email            string
	PhoneNumber      string
	Address          string
	Description      string
	MatchingAnalysis []interface{}
	TotalScore       *int
	Recommendation   string
	// Extra keeps keys the scorer returned that have no canonical slot.
	Extra map[string]interface{}
	Error string
}

// Raw renders the result in the scorer's key convention for persistence as the raw output blob.
func (r CVAnalysisResult) Raw() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Extra)+9)
	for k, v := range r.Extra {
		out[k] = v
	}
	matching := r.MatchingAnalysis
	if matching == nil {
		matching = []interface{}{}
	}
	out["name"] = r.Name
	out["email"] = r.Email
	out["phone_number"] = r.PhoneNumber
	out["address"] = r.Address
	out["description"] = r.Description
	out["matching_analysis"] = matching
	out["Total_score"] = r.TotalScore
	out["recommendation"] = r.Recommendation
	if r.Error != "" {
		out["error"] = r.Error
	}
	return out
}

// VideoAnalysisResult is the canonical video scorer output.
type VideoAnalysisResult struct {
	ConfidenceScore       *int
	Clarity               *int
	Relevance             *int
	Summary               *string
	Transcript            *string
	FacePresenceRatio     *float64
	CameraEngagementRatio *float64
	YawVariance           *float64
	NeedsReview           bool
	// Raw is the flattened payload the metrics were read from.
	Raw   map[string]interface{}
	Error string
}

var (
	fenceOpen  = regexp.MustCompile("^```\\w*\\n?")
	fenceClose = regexp.MustCompile("\\n?```\\s*$")
)

// decodePayload turns a scorer response body into a JSON value, or the body text when it is
// not JSON at all.
func decodePayload(body []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

// parseJSONObject decodes model text into an object. It strips markdown fences, then retries
// with single quotes swapped for double quotes, then falls back to the outermost braces.
func parseJSONObject(s string) map[string]interface{} {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		s = fenceClose.ReplaceAllString(s, "")
	}

	candidates := []string{s, strings.ReplaceAll(s, "'", `"`), extractJSON(s)}
	for _, c := range candidates {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj != nil {
			return obj
		}
	}
	return map[string]interface{}{}
}

// extractJSON returns the text between the first '{' and the last '}', if any.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// resolveObject picks the analysis object out of whatever shape the scorer sent back.
func resolveObject(raw interface{}, looksLikeAnalysis func(string) bool) map[string]interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v
	case []interface{}:
		for _, item := range v {
			switch it := item.(type) {
			case map[string]interface{}:
				return it
			case string:
				if looksLikeAnalysis(it) {
					return parseJSONObject(it)
				}
			}
		}
	case string:
		return parseJSONObject(v)
	}
	return map[string]interface{}{}
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(k), " ", "_")
}

// NormalizeCVResult coerces a CV scorer payload into CVAnalysisResult. Key names are matched
// case-insensitively with spaces treated as underscores.
func NormalizeCVResult(raw interface{}) CVAnalysisResult {
	data := resolveObject(raw, func(s string) bool {
		return strings.HasPrefix(strings.TrimSpace(s), "{") || strings.Contains(s, "Total_score")
	})

	res := CVAnalysisResult{MatchingAnalysis: []interface{}{}}
	for _, k := range sortedKeys(data) {
		v := data[k]
		if v == nil {
			continue
		}
		switch normalizeKey(k) {
		case "email", "email_address":
			res.Email = toText(v)
		case "home_address", "address":
			res.Address = toText(v)
		case "name":
			res.Name = toText(v)
		case "phone", "phone_number":
			res.PhoneNumber = toText(v)
		case "matching_analysis":
			switch list := v.(type) {
			case []interface{}:
				res.MatchingAnalysis = list
			default:
				if truthy(v) {
					res.MatchingAnalysis = []interface{}{v}
				}
			}
		case "description":
			res.Description = toText(v)
		case "total_score", "score":
			res.TotalScore = coerceScore(v)
		case "recommendation":
			res.Recommendation = toText(v)
		default:
			if res.Extra == nil {
				res.Extra = map[string]interface{}{}
			}
			res.Extra[k] = v
		}
	}
	return res
}

// normalizeVideoPayload flattens the video scorer shape (visual_analysis, grading.scores,
// top-level transcript) into one level, keeping unknown keys for deep lookup.
func normalizeVideoPayload(raw interface{}) map[string]interface{} {
	data := resolveObject(raw, func(s string) bool {
		return strings.Contains(s, "{") || strings.Contains(s, "visual_confidence_score")
	})

	out := map[string]interface{}{}
	if t, ok := data["transcript"]; ok {
		out["transcript"] = t
	}
	if va, ok := data["visual_analysis"].(map[string]interface{}); ok {
		for _, k := range []string{
			"face_presence_ratio", "camera_engagement_ratio", "yaw_variance",
			"visual_confidence_score", "needs_review",
		} {
			out[k] = va[k]
		}
	}
	if gr, ok := data["grading"].(map[string]interface{}); ok {
		out["summary"] = gr["summary"]
		if scores, ok := gr["scores"].(map[string]interface{}); ok {
			out["relevance"] = scores["relevance"]
			out["clarity"] = scores["clarity"]
		}
	}
	for k, v := range data {
		if _, exists := out[k]; exists || k == "visual_analysis" || k == "grading" {
			continue
		}
		out[k] = v
	}
	return out
}

// ExtractVideoMetrics reads typed metrics from a flattened video payload, falling back to a
// nested search when a key is not at the top level.
func ExtractVideoMetrics(payload map[string]interface{}) VideoAnalysisResult {
	get := func(key string) interface{} {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
		return findKeyDeep(payload, key)
	}

	confidence := firstTruthy(get("visual_confidence_score"), get("confidence_score"), get("confidence"))

	return VideoAnalysisResult{
		ConfidenceScore:       coerceScore(confidence),
		Clarity:               toIntPtr(get("clarity")),
		Relevance:             toIntPtr(get("relevance")),
		Summary:               trimmedOrNil(get("summary")),
		Transcript:            trimmedOrNil(get("transcript")),
		CameraEngagementRatio: toFloatPtr(get("camera_engagement_ratio")),
		YawVariance:           toFloatPtr(get("yaw_variance")),
		FacePresenceRatio:     toFloatPtr(get("face_presence_ratio")),
		NeedsReview:           toBool(get("needs_review")),
		Raw:                   payload,
	}
}

// NormalizeVideoResult is normalizeVideoPayload followed by ExtractVideoMetrics.
func NormalizeVideoResult(raw interface{}) VideoAnalysisResult {
	return ExtractVideoMetrics(normalizeVideoPayload(raw))
}

// findKeyDeep returns the first value whose key matches target ignoring case and underscores.
// Map keys are visited in sorted order so the result is deterministic.
func findKeyDeep(data interface{}, target string) interface{} {
	want := strings.ToLower(strings.ReplaceAll(target, "_", ""))

	switch v := data.(type) {
	case map[string]interface{}:
		for _, k := range sortedKeys(v) {
			if strings.ToLower(strings.ReplaceAll(k, "_", "")) == want {
				return v[k]
			}
			if found := findKeyDeep(v[k], target); found != nil {
				return found
			}
		}
	case []interface{}:
		for _, item := range v {
			if found := findKeyDeep(item, target); found != nil {
				return found
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// coerceScore maps a score onto 0..100. Fractions in [0,1] are scaled by 100 first.
func coerceScore(v interface{}) *int {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return nil
	}
	if f >= 0 && f <= 1 {
		f *= 100
	}
	if f < 0 || f > 100 {
		return nil
	}
	score := int(math.Round(f))
	return &score
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toFloatPtr(v interface{}) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func toIntPtr(v interface{}) *int {
	var i int
	switch n := v.(type) {
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		i = parsed
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		i = int(f)
	}
	return &i
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "y":
			return true
		}
		return false
	}
	f, ok := toFloat(v)
	return ok && f == 1
}

func toText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func trimmedOrNil(v interface{}) *string {
	if !truthy(v) {
		return nil
	}
	s := toText(v)
	if s == "" {
		return nil
	}
	return &s
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

func firstTruthy(values ...interface{}) interface{} {
	for _, v := range values {
		if truthy(v) {
			return v
		}
	}
	return nil
}
