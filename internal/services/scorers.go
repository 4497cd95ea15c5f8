package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// CVScorer sends one CV and job description to a model and returns the raw response body.
type CVScorer interface {
	Score(ctx context.Context, filePath, jobDescription string) ([]byte, error)
}

// VideoScorer sends one answer video with its role and question and returns the raw body.
type VideoScorer interface {
	Score(ctx context.Context, filePath, role, question string) ([]byte, error)
}

type httpCVScorer struct {
	url    string
	client *http.Client
}

// NewHTTPCVScorer posts multipart forms to a hosted CV model. Deadlines come from the caller's
// context, one per attempt.
func NewHTTPCVScorer(url string, client *http.Client) CVScorer {
	if client == nil {
		client = &http.Client{}
	}
	return &httpCVScorer{url: url, client: client}
}

func (s *httpCVScorer) Score(ctx context.Context, filePath, jobDescription string) ([]byte, error) {
	return postMultipart(ctx, s.client, s.url, "cv_pdf", filePath, map[string]string{
		"job_description": jobDescription,
	})
}

// postMultipart streams filePath under fileField plus the given text fields and returns the
// body of a 2xx response. Other statuses become a *ScorerStatusError.
func postMultipart(
	ctx context.Context,
	client *http.Client,
	url, fileField, filePath string,
	fields map[string]string,
) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(fileField, filepath.Base(filePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		for k, v := range fields {
			if err := mw.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to build scorer request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		pr.Close()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ScorerStatusError{StatusCode: resp.StatusCode, Message: statusMessage(resp.StatusCode, body)}
	}
	return body, nil
}

// statusMessage prefers the "error" or "detail" field of a JSON error body.
func statusMessage(code int, body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "detail"} {
			if v, ok := payload[key]; ok && truthy(v) {
				return toText(v)
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return fmt.Sprintf("HTTP %d", code)
	}
	return fmt.Sprintf("HTTP %d: %s", code, text)
}

type httpVideoScorer struct {
	url    string
	client *http.Client
}

func NewHTTPVideoScorer(url string, client *http.Client) VideoScorer {
	if client == nil {
		client = &http.Client{}
	}
	return &httpVideoScorer{url: url, client: client}
}

func (s *httpVideoScorer) Score(ctx context.Context, filePath, role, question string) ([]byte, error) {
	return postMultipart(ctx, s.client, s.url, "video", filePath, map[string]string{
		"role":     role,
		"question": question,
	})
}
