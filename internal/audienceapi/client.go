// Package audienceapi реализует HTTP-клиент сервиса управления аудиториями.
package audienceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"audience-client/internal/domain"
	"audience-client/internal/metrics"
	"audience-client/internal/observability"
	"audience-client/internal/ports"
)

// DefaultBaseURL - адрес сервиса по умолчанию.
const DefaultBaseURL = "https://data-api.twitter.com"

const (
	SegmentsPath  = "/insights/audience/segments"
	AudiencesPath = "/insights/audience/audiences"
	UsagePath     = "/insights/audience/usage"
)

// Option - функциональная опция для настройки Client.
type Option func(*Client)

// WithHTTPClient задает HTTP-клиент, например подписывающий запросы OAuth.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics включает учет запросов.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client - клиент для взаимодействия с API сервиса аудиторий.
// Любой ответ со статусом выше 201, кроме 204, возвращается как *domain.APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	log        *slog.Logger
}

var _ ports.API = (*Client)(nil)

// NewClient создает новый экземпляр Client.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tracer: observability.Tracer(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type segmentsPage struct {
	Segments []domain.Segment `json:"segments"`
	Next     string           `json:"next"`
}

type audiencesPage struct {
	Audiences []domain.Audience `json:"audiences"`
	Next      string            `json:"next"`
}

type appendRequest struct {
	UserIDs []string `json:"user_ids"`
}

type createAudienceRequest struct {
	Name       string   `json:"name"`
	SegmentIDs []string `json:"segment_ids"`
}

type queryRequest struct {
	Groupings domain.Groupings `json:"groupings"`
}

// ListSegments загружает одну страницу сегментов.
func (c *Client) ListSegments(ctx context.Context, cursor string) (domain.Page[domain.Segment], error) {
	var page segmentsPage
	if err := c.do(ctx, http.MethodGet, "segments.list", SegmentsPath+"?next="+url.QueryEscape(cursor), nil, &page); err != nil {
		return domain.Page[domain.Segment]{}, err
	}
	return domain.Page[domain.Segment]{Items: page.Segments, Next: page.Next}, nil
}

// CreateSegment создает сегмент.
func (c *Client) CreateSegment(ctx context.Context, req domain.NewSegment) (*domain.Segment, error) {
	var seg domain.Segment
	if err := c.do(ctx, http.MethodPost, "segments.create", SegmentsPath, req, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// AppendSegmentIDs добавляет порцию пользователей в сегмент.
func (c *Client) AppendSegmentIDs(ctx context.Context, segmentID string, userIDs []string) error {
	path := SegmentsPath + "/" + url.PathEscape(segmentID) + "/ids"
	return c.do(ctx, http.MethodPost, "segments.append", path, appendRequest{UserIDs: userIDs}, nil)
}

// GetSegment загружает сегмент по ID.
func (c *Client) GetSegment(ctx context.Context, id string) (*domain.Segment, error) {
	var seg domain.Segment
	if err := c.do(ctx, http.MethodGet, "segments.get", SegmentsPath+"/"+url.PathEscape(id), nil, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// DeleteSegment удаляет сегмент по ID.
func (c *Client) DeleteSegment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "segments.delete", SegmentsPath+"/"+url.PathEscape(id), nil, nil)
}

// ListAudiences загружает одну страницу аудиторий.
func (c *Client) ListAudiences(ctx context.Context, cursor string) (domain.Page[domain.Audience], error) {
	var page audiencesPage
	if err := c.do(ctx, http.MethodGet, "audiences.list", AudiencesPath+"?next="+url.QueryEscape(cursor), nil, &page); err != nil {
		return domain.Page[domain.Audience]{}, err
	}
	return domain.Page[domain.Audience]{Items: page.Audiences, Next: page.Next}, nil
}

// CreateAudience создает аудиторию из сегментов.
func (c *Client) CreateAudience(ctx context.Context, name string, segmentIDs []string) (*domain.Audience, error) {
	var aud domain.Audience
	req := createAudienceRequest{Name: name, SegmentIDs: segmentIDs}
	if err := c.do(ctx, http.MethodPost, "audiences.create", AudiencesPath, req, &aud); err != nil {
		return nil, err
	}
	return &aud, nil
}

// GetAudience загружает аудиторию по ID.
func (c *Client) GetAudience(ctx context.Context, id string) (*domain.Audience, error) {
	var aud domain.Audience
	if err := c.do(ctx, http.MethodGet, "audiences.get", AudiencesPath+"/"+url.PathEscape(id), nil, &aud); err != nil {
		return nil, err
	}
	return &aud, nil
}

// DeleteAudience удаляет аудиторию по ID.
func (c *Client) DeleteAudience(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "audiences.delete", AudiencesPath+"/"+url.PathEscape(id), nil, nil)
}

// QueryAudience запрашивает агрегированную статистику по аудитории.
func (c *Client) QueryAudience(ctx context.Context, id string, groupings domain.Groupings) (domain.QueryResult, error) {
	var res domain.QueryResult
	path := AudiencesPath + "/" + url.PathEscape(id) + "/query"
	if err := c.do(ctx, http.MethodPost, "audiences.query", path, queryRequest{Groupings: groupings}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Usage возвращает статистику использования продукта.
func (c *Client) Usage(ctx context.Context) (domain.Usage, error) {
	var usage domain.Usage
	if err := c.do(ctx, http.MethodGet, "usage", UsagePath, nil, &usage); err != nil {
		return nil, err
	}
	return usage, nil
}

// do выполняет запрос. route - стабильное имя операции для метрик и спанов.
func (c *Client) do(ctx context.Context, method, route, path string, in, out any) error {
	ctx, span := c.tracer.Start(ctx, "audienceapi."+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(method, route, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return fmt.Errorf("failed to send request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.metrics.ObserveAPI(method, route, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if err != nil {
		return fmt.Errorf("failed to read response %s %s: %w", method, path, err)
	}

	if resp.StatusCode > http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		apiErr := decodeError(method, path, resp.StatusCode, raw)
		span.SetStatus(codes.Error, apiErr.Message)
		c.log.WarnContext(ctx, "audience api request failed",
			"method", method, "path", path, "status", resp.StatusCode,
			"reason", apiErr.Reason, "message", apiErr.Message, "body", apiErr.Body)
		return apiErr
	}

	c.log.DebugContext(ctx, "audience api request", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(raw))
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response %s %s: %w", method, path, err)
	}
	return nil
}
