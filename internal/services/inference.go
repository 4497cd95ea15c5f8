package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"recruitflow/assessment-api/internal/apperrors"
)

// Markers the remote models put in their output when they failed to produce JSON.
var parseFailureMarkers = []string{
	"Model output could not be parsed as JSON",
	"JSON parse failed",
}

type RetryPolicy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
}

// ScorerStatusError is a non-2xx answer from a scorer endpoint.
type ScorerStatusError struct {
	StatusCode int
	Message    string
}

func (e *ScorerStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return e.Message
}

// classifyError tags connection-class failures as transient inference errors. Anything else is
// returned unchanged and will not be retried.
func classifyError(op string, err error) error {
	if err == nil || apperrors.KindOf(err) != "" {
		return err
	}

	var (
		netErr    net.Error
		opErr     *net.OpError
		dnsErr    *net.DNSError
		statusErr *ScorerStatusError
		apiErr    genai.APIError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.Transient(op, err)
	case errors.As(err, &statusErr):
		if isTransientStatus(statusErr.StatusCode) {
			return apperrors.Transient(op, err)
		}
	case errors.As(err, &apiErr):
		if isTransientStatus(apiErr.Code) {
			return apperrors.Transient(op, err)
		}
	}
	return err
}

// isTransientStatus covers the gateway-class codes a tunnel or proxy returns when the model
// server drops the connection, plus rate limiting.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func hasParseFailureMarker(body []byte) bool {
	s := string(body)
	for _, marker := range parseFailureMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// callWithRetry runs call up to MaxAttempts times. Transient errors and payloads carrying a
// parse-failure marker are retried after Delay; the last attempt's outcome is returned as is.
func (g *inferenceGateway) callWithRetry(
	ctx context.Context,
	scorer string,
	policy RetryPolicy,
	call func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	log := g.logger.With(zap.String("scorer", scorer))
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		body, err := call(attemptCtx)
		cancel()

		last := attempt == policy.MaxAttempts
		if err == nil {
			if !hasParseFailureMarker(body) {
				g.metrics.ObserveAttempt(scorer, "ok")
				return body, nil
			}
			g.metrics.ObserveAttempt(scorer, "malformed")
			if last {
				log.Warn("parse failure persisted, proceeding with last result", zap.Int("attempt", attempt))
				return body, nil
			}
			lastErr = apperrors.Malformed("%s output could not be parsed", scorer)
			log.Warn("model output not parseable, retrying", zap.Int("attempt", attempt))
		} else {
			err = classifyError("call "+scorer+" scorer", err)
			lastErr = err
			if !apperrors.IsRetryable(err) || ctx.Err() != nil {
				g.metrics.ObserveAttempt(scorer, "failed")
				return nil, err
			}
			g.metrics.ObserveAttempt(scorer, "transient")
			if last {
				log.Error("all attempts failed", zap.Int("attempts", attempt), zap.Error(err))
				return nil, err
			}
			log.Warn("connection error, retrying", zap.Int("attempt", attempt), zap.Error(err))
		}

		select {
		case <-time.After(policy.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		}
	}

	return nil, lastErr
}

// InferenceGateway masks unreliable scorers behind a bounded retry policy and always returns a
// fully populated result. Failures are reported through the result's Error field.
type InferenceGateway interface {
	AnalyzeCV(ctx context.Context, filePath, jobDescription string) CVAnalysisResult
	AnalyzeVideo(ctx context.Context, filePath, role, question string) VideoAnalysisResult
}

type inferenceGateway struct {
	cvScorer    CVScorer
	videoScorer VideoScorer
	cvPolicy    RetryPolicy
	videoPolicy RetryPolicy
	logger      *zap.Logger
	metrics     *PipelineMetrics
}

func NewInferenceGateway(
	cvScorer CVScorer,
	videoScorer VideoScorer,
	cvPolicy RetryPolicy,
	videoPolicy RetryPolicy,
	logger *zap.Logger,
	metrics *PipelineMetrics,
) InferenceGateway {
	return &inferenceGateway{
		cvScorer:    cvScorer,
		videoScorer: videoScorer,
		cvPolicy:    cvPolicy,
		videoPolicy: videoPolicy,
		logger:      logger,
		metrics:     metrics,
	}
}

func blankToSpace(s string) string {
	if strings.TrimSpace(s) == "" {
		return " "
	}
	return strings.TrimSpace(s)
}

func (g *inferenceGateway) AnalyzeCV(ctx context.Context, filePath, jobDescription string) CVAnalysisResult {
	jobDescription = blankToSpace(jobDescription)
	if _, err := os.Stat(filePath); err != nil {
		return CVAnalysisResult{MatchingAnalysis: []interface{}{}, Error: "CV file not found"}
	}

	body, err := g.callWithRetry(ctx, "cv", g.cvPolicy, func(ctx context.Context) ([]byte, error) {
		return g.cvScorer.Score(ctx, filePath, jobDescription)
	})
	if err != nil {
		return CVAnalysisResult{MatchingAnalysis: []interface{}{}, Error: err.Error()}
	}

	return NormalizeCVResult(decodePayload(body))
}

func (g *inferenceGateway) AnalyzeVideo(ctx context.Context, filePath, role, question string) VideoAnalysisResult {
	role = blankToSpace(role)
	question = blankToSpace(question)
	if _, err := os.Stat(filePath); err != nil {
		return VideoAnalysisResult{Error: fmt.Sprintf("video file not found at %s", filePath)}
	}

	body, err := g.callWithRetry(ctx, "video", g.videoPolicy, func(ctx context.Context) ([]byte, error) {
		return g.videoScorer.Score(ctx, filePath, role, question)
	})
	if err != nil {
		return VideoAnalysisResult{Error: err.Error()}
	}

	return NormalizeVideoResult(decodePayload(body))
}
