package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	opTranscribe = "transcribe"
	opChallenges = "challenges"
	opEvaluate   = "evaluate"

	maxResponseBytes = 8 << 20
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pitch",
		Subsystem: "analyzer",
		Name:      "request_duration_seconds",
		Help:      "Duration of requests to the remote analysis service",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"operation"})

	requestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitch",
		Subsystem: "analyzer",
		Name:      "request_failures_total",
		Help:      "Number of failed requests to the remote analysis service",
	}, []string{"operation", "kind"})
)

// Config defines how the client reaches the analysis service.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the remote analysis service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	tracer  trace.Tracer
	logger  zerolog.Logger
}

var _ Analyzer = (*Client)(nil)

// New builds a client for the service rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("analyzer base url is required")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid analyzer base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("analyzer base url must be absolute: %q", base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		baseURL: parsed,
		http:    httpClient,
		timeout: cfg.Timeout,
		tracer:  otel.Tracer("github.com/noah-isme/pitch-review/pkg/analyzer"),
		logger:  logger.With().Str("component", "analyzer_client").Logger(),
	}, nil
}

// Transcribe posts the recording to /transcribe.
func (c *Client) Transcribe(ctx context.Context, file AudioFile) (TranscriptionReport, error) {
	var report TranscriptionReport
	err := c.upload(ctx, opTranscribe, "transcribe", file, schemaTranscription, &report)
	if err != nil {
		return TranscriptionReport{}, err
	}
	return report, nil
}

// Evaluate posts the recording to /evaluate/{challengeID}.
func (c *Client) Evaluate(ctx context.Context, challengeID int, file AudioFile) (ChallengeEvaluation, error) {
	var evaluation ChallengeEvaluation
	endpoint := path.Join("evaluate", strconv.Itoa(challengeID))
	err := c.upload(ctx, opEvaluate, endpoint, file, schemaEvaluation, &evaluation)
	if err != nil {
		return ChallengeEvaluation{}, err
	}
	return evaluation, nil
}

// ListChallenges fetches the challenge catalog.
func (c *Client) ListChallenges(ctx context.Context) ([]Challenge, error) {
	ctx, span := c.tracer.Start(ctx, "analyzer.challenges")
	defer span.End()

	start := time.Now()
	body, err := c.do(ctx, opChallenges, http.MethodGet, "challenges", nil, "")
	requestDuration.WithLabelValues(opChallenges).Observe(time.Since(start).Seconds())
	if err == nil {
		var list challengeList
		if err = decodeValidated(schemaChallenges, body, &list); err == nil {
			span.SetAttributes(attribute.Int("analyzer.challenges", len(list.Challenges)))
			span.SetStatus(codes.Ok, "listed")
			return list.Challenges, nil
		}
	}

	c.fail(span, opChallenges, err)
	return nil, err
}

func (c *Client) upload(ctx context.Context, operation, endpoint string, file AudioFile, schema string, target interface{}) error {
	ctx, span := c.tracer.Start(ctx, "analyzer."+operation, trace.WithAttributes(
		attribute.String("analyzer.file_name", file.Name),
		attribute.Int("analyzer.file_bytes", len(file.Data)),
	))
	defer span.End()

	payload, contentType, err := multipartBody(file)
	if err != nil {
		c.fail(span, operation, err)
		return err
	}

	start := time.Now()
	body, err := c.do(ctx, operation, http.MethodPost, endpoint, payload, contentType)
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err == nil {
		err = decodeValidated(schema, body, target)
	}
	if err != nil {
		c.fail(span, operation, err)
		return err
	}

	span.SetStatus(codes.Ok, "analyzed")
	return nil
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, payload io.Reader, contentType string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL.JoinPath(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", operation, ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: read body: %v", operation, ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		}
	}

	return body, nil
}

func (c *Client) fail(span trace.Span, operation string, err error) {
	kind := failureKind(err)
	requestFailures.WithLabelValues(operation, kind).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
	c.logger.Warn().Err(err).Str("operation", operation).Str("kind", kind).Msg("analyzer request failed")
}

func multipartBody(file AudioFile) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = mimetype.Detect(file.Data).String()
	}

	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "recording" + mimetype.Detect(file.Data).Extension()
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := io.Copy(part, file.Reader()); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return buf, writer.FormDataContentType(), nil
}

// errorDetail extracts the FastAPI style {"detail": "..."} message when present.
func errorDetail(body []byte) string {
	var payload struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == nil {
		return ""
	}
	if detail, ok := payload.Detail.(string); ok {
		return detail
	}
	encoded, err := json.Marshal(payload.Detail)
	if err != nil {
		return ""
	}
	return string(encoded)
}
