// Package usecase содержит сценарии приложения: построение аудитории и административные операции.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"audience-client/internal/core/services"
	"audience-client/internal/domain"
	"audience-client/internal/metrics"
	"audience-client/internal/observability"
	"audience-client/internal/ports"
)

// ErrNoSegmentName - идентификаторы загружены, но сегмент для них не задан.
var ErrNoSegmentName = errors.New("user ids loaded but no segment name configured")

// metadataLookupLimit ограничивает число одновременных запросов сегментов при сборе метаданных.
const metadataLookupLimit = 4

// Stage - этап построения.
type Stage int

const (
	StageIngest Stage = iota + 1
	StageSegmentBuild
	StageSegmentRetrieval
	StageAudienceResolution
	StageReconcile
	StageQuery
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIngest:
		return "ingest"
	case StageSegmentBuild:
		return "segment_build"
	case StageSegmentRetrieval:
		return "segment_retrieval"
	case StageAudienceResolution:
		return "audience_resolution"
	case StageReconcile:
		return "reconcile"
	case StageQuery:
		return "query"
	case StageDone:
		return "done"
	default:
		return "not_started"
	}
}

// BuildState переходит от этапа к этапу. Continue=false останавливает все последующие этапы.
type BuildState struct {
	RunID    string
	Continue bool
	// Stage - последний начатый этап.
	Stage Stage

	IDs []string
	// Segment - сегмент, собранный из загруженных идентификаторов.
	Segment *domain.Segment
	// Segments - найденные сегменты из конфигурации.
	Segments    []domain.Segment
	Audience    *domain.Audience
	Result      domain.QueryResult
	OutputPaths []string

	// Err - ошибка, остановившая построение. Nil при штатной остановке.
	Err error
	// StopReason описывает штатную остановку.
	StopReason string

	log *slog.Logger
}

func (s *BuildState) fail(err error) {
	s.Continue = false
	s.Err = err
}

func (s *BuildState) halt(reason string) {
	s.Continue = false
	s.StopReason = reason
}

// BuildConfig - параметры построения из настроек.
type BuildConfig struct {
	AudienceName        string
	SegmentNames        []string
	Groupings           domain.Groupings
	AddAudienceMetadata bool
}

// BuildOption - функциональная опция для настройки BuildUseCase.
type BuildOption func(*BuildUseCase)

// WithResultWriters задает получателей результата запроса.
func WithResultWriters(writers ...ports.ResultWriter) BuildOption {
	return func(uc *BuildUseCase) {
		uc.writers = append(uc.writers, writers...)
	}
}

// WithBuildMetrics включает учет запусков.
func WithBuildMetrics(m *metrics.Metrics) BuildOption {
	return func(uc *BuildUseCase) {
		uc.metrics = m
	}
}

// WithBuildLogger устанавливает логгер.
func WithBuildLogger(l *slog.Logger) BuildOption {
	return func(uc *BuildUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// BuildUseCase последовательно выполняет загрузку идентификаторов, сборку сегмента,
// построение аудитории, связывание и запрос.
type BuildUseCase struct {
	cfg       BuildConfig
	source    ports.IdentifierSource
	segments  ports.SegmentManager
	audiences ports.AudienceManager
	linker    ports.AudienceLinker
	writers   []ports.ResultWriter
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	log       *slog.Logger
}

// NewBuildUseCase создает новый экземпляр BuildUseCase.
func NewBuildUseCase(
	cfg BuildConfig,
	source ports.IdentifierSource,
	segments ports.SegmentManager,
	audiences ports.AudienceManager,
	linker ports.AudienceLinker,
	opts ...BuildOption,
) *BuildUseCase {
	uc := &BuildUseCase{
		cfg:       cfg,
		source:    source,
		segments:  segments,
		audiences: audiences,
		linker:    linker,
		tracer:    observability.Tracer(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type stageFunc func(ctx context.Context, state *BuildState)

// Run выполняет построение и возвращает итоговое состояние и ошибку, остановившую его.
func (uc *BuildUseCase) Run(ctx context.Context) (*BuildState, error) {
	state := &BuildState{RunID: uuid.NewString(), Continue: true}
	state.log = uc.log.With("run_id", state.RunID)

	ctx, span := uc.tracer.Start(ctx, "build.run", trace.WithAttributes(attribute.String("run.id", state.RunID)))
	defer span.End()

	stages := []struct {
		stage Stage
		run   stageFunc
	}{
		{StageIngest, uc.ingest},
		{StageSegmentBuild, uc.buildSegment},
		{StageSegmentRetrieval, uc.retrieveSegments},
		{StageAudienceResolution, uc.resolveAudience},
		{StageReconcile, uc.reconcile},
		{StageQuery, uc.query},
	}
	for _, st := range stages {
		if !state.Continue {
			break
		}
		state.Stage = st.stage
		uc.runStage(ctx, state, st.stage, st.run)
	}

	outcome := "failed"
	switch {
	case state.Continue:
		state.Stage = StageDone
		outcome = "success"
		state.log.InfoContext(ctx, "build finished", "audience", uc.cfg.AudienceName, "outputs", state.OutputPaths)
	case state.Err == nil:
		outcome = "stopped"
		state.log.InfoContext(ctx, "build stopped", "stage", state.Stage.String(), "reason", state.StopReason)
	default:
		span.RecordError(state.Err)
		span.SetStatus(codes.Error, state.Err.Error())
		state.log.ErrorContext(ctx, "build failed", "stage", state.Stage.String(), "error", state.Err)
	}
	uc.metrics.ObservePipeline(state.Stage.String(), outcome)
	return state, state.Err
}

func (uc *BuildUseCase) runStage(ctx context.Context, state *BuildState, stage Stage, run stageFunc) {
	ctx, span := uc.tracer.Start(ctx, "build."+stage.String())
	defer span.End()

	state.log.DebugContext(ctx, "stage started", "stage", stage.String())
	run(ctx, state)
	if state.Err != nil {
		span.RecordError(state.Err)
		span.SetStatus(codes.Error, state.Err.Error())
	}
}

func (uc *BuildUseCase) ingest(ctx context.Context, state *BuildState) {
	ids, err := uc.source.LoadIdentifiers(ctx)
	if err != nil {
		state.fail(fmt.Errorf("load identifiers: %w", err))
		return
	}
	state.IDs = ids
	if len(ids) == 0 {
		state.log.InfoContext(ctx, "no new user ids to process")
	}
}

// buildSegment собирает только первый сегмент из конфигурации, остальные имена
// используются лишь для поиска на следующем этапе.
func (uc *BuildUseCase) buildSegment(ctx context.Context, state *BuildState) {
	if len(state.IDs) == 0 {
		return
	}
	if len(uc.cfg.SegmentNames) == 0 {
		state.log.ErrorContext(ctx, "have user ids to add, but no segment name provided", "ids", len(state.IDs))
		state.fail(ErrNoSegmentName)
		return
	}

	name := uc.cfg.SegmentNames[0]
	if len(uc.cfg.SegmentNames) > 1 {
		state.log.InfoContext(ctx, "with multiple segment names only the first one is built", "segment", name)
	}
	seg, err := uc.segments.CreateOrUpdate(ctx, name, state.IDs)
	if err != nil {
		state.fail(err)
		return
	}
	state.Segment = seg
}

func (uc *BuildUseCase) retrieveSegments(ctx context.Context, state *BuildState) {
	for _, name := range uc.cfg.SegmentNames {
		seg, err := uc.segments.FindByName(ctx, name)
		if err != nil {
			state.fail(err)
			return
		}
		if seg == nil {
			state.log.WarnContext(ctx, "specified segment does not exist, skipping it", "segment", name)
			continue
		}
		state.Segments = append(state.Segments, *seg)
	}
}

func (uc *BuildUseCase) resolveAudience(ctx context.Context, state *BuildState) {
	name := uc.cfg.AudienceName
	if name == "" {
		state.halt("no audience name configured")
		return
	}

	aud, err := uc.audiences.GetOrAbsent(ctx, name)
	if err != nil {
		state.fail(err)
		return
	}
	if aud != nil {
		state.Audience = aud
		return
	}

	state.log.WarnContext(ctx, "audience does not exist", "audience", name)
	if len(state.Segments) == 0 {
		state.log.ErrorContext(ctx, "no segments to build audience with", "audience", name)
		state.fail(services.ErrNoSegments)
		return
	}
	if err := uc.audiences.ValidateSize(state.Segments); err != nil {
		state.log.ErrorContext(ctx, "cannot create audience", "audience", name, "error", err)
		state.fail(err)
		return
	}

	ids := make([]string, 0, len(state.Segments))
	for _, seg := range state.Segments {
		ids = append(ids, seg.ID)
	}
	aud, err = uc.audiences.Create(ctx, name, ids)
	if err != nil {
		state.fail(err)
		return
	}
	state.Audience = aud
}

func (uc *BuildUseCase) reconcile(ctx context.Context, state *BuildState) {
	before := state.Audience.ID
	aud, err := uc.linker.EnsureLinked(ctx, state.Audience, state.Segments)
	if err != nil {
		if services.IsReconciliationHazard(err) {
			uc.metrics.ObserveReconciliation("hazard")
		} else {
			uc.metrics.ObserveReconciliation("failed")
		}
		state.fail(err)
		return
	}
	if aud.ID != before {
		uc.metrics.ObserveReconciliation("relinked")
	} else {
		uc.metrics.ObserveReconciliation("unchanged")
	}
	state.Audience = aud
}

func (uc *BuildUseCase) query(ctx context.Context, state *BuildState) {
	if len(uc.cfg.Groupings) == 0 {
		state.log.InfoContext(ctx, "no groupings configured, skipping query")
		return
	}

	res, err := uc.audiences.Query(ctx, state.Audience.ID, uc.cfg.Groupings)
	if err != nil {
		state.fail(err)
		return
	}
	if uc.cfg.AddAudienceMetadata {
		res, err = uc.withMetadata(ctx, *state.Audience, res)
		if err != nil {
			state.fail(err)
			return
		}
	}
	state.Result = res

	for _, w := range uc.writers {
		path, err := w.Write(state.Audience.Name, res)
		if err != nil {
			state.fail(fmt.Errorf("write result: %w", err))
			return
		}
		if path != "" {
			state.log.InfoContext(ctx, "result written", "path", path)
			state.OutputPaths = append(state.OutputPaths, path)
		}
	}
}

// withMetadata добавляет в результат ключ "audience" с описанием аудитории и именами ее сегментов.
func (uc *BuildUseCase) withMetadata(ctx context.Context, aud domain.Audience, res domain.QueryResult) (domain.QueryResult, error) {
	names := make([]string, len(aud.SegmentIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataLookupLimit)
	for i, id := range aud.SegmentIDs {
		g.Go(func() error {
			seg, err := uc.segments.Get(gctx, id)
			if err != nil {
				return err
			}
			names[i] = seg.Name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve segment names: %w", err)
	}

	meta, err := json.Marshal(domain.AudienceMetadata{Audience: aud, SegmentNames: names})
	if err != nil {
		return nil, fmt.Errorf("encode audience metadata: %w", err)
	}

	out := make(domain.QueryResult, len(res)+1)
	for k, v := range res {
		out[k] = v
	}
	out["audience"] = meta
	return out, nil
}
