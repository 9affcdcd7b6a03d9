package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"audience-client/internal/core/services"
	"audience-client/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockSource struct{ mock.Mock }

func (m *mockSource) LoadIdentifiers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSegments struct{ mock.Mock }

func (m *mockSegments) List(ctx context.Context) ([]domain.Segment, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.Segment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSegments) FindByName(ctx context.Context, name string) (*domain.Segment, error) {
	args := m.Called(ctx, name)
	if res := args.Get(0); res != nil {
		return res.(*domain.Segment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSegments) Get(ctx context.Context, id string) (*domain.Segment, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*domain.Segment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSegments) CreateOrUpdate(ctx context.Context, name string, ids []string) (*domain.Segment, error) {
	args := m.Called(ctx, name, ids)
	if res := args.Get(0); res != nil {
		return res.(*domain.Segment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSegments) DeleteByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSegments) DeleteByName(ctx context.Context, name string) (services.DeleteOutcome, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(services.DeleteOutcome), args.Error(1)
}

type mockAudiences struct{ mock.Mock }

func (m *mockAudiences) List(ctx context.Context) ([]domain.Audience, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]domain.Audience), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAudiences) GetOrAbsent(ctx context.Context, name string) (*domain.Audience, error) {
	args := m.Called(ctx, name)
	if res := args.Get(0); res != nil {
		return res.(*domain.Audience), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAudiences) ValidateSize(segments []domain.Segment) error {
	return m.Called(segments).Error(0)
}

func (m *mockAudiences) Create(ctx context.Context, name string, segmentIDs []string) (*domain.Audience, error) {
	args := m.Called(ctx, name, segmentIDs)
	if res := args.Get(0); res != nil {
		return res.(*domain.Audience), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAudiences) DeleteByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAudiences) DeleteByName(ctx context.Context, name string) (services.DeleteOutcome, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(services.DeleteOutcome), args.Error(1)
}

func (m *mockAudiences) Query(ctx context.Context, id string, groupings domain.Groupings) (domain.QueryResult, error) {
	args := m.Called(ctx, id, groupings)
	if res := args.Get(0); res != nil {
		return res.(domain.QueryResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLinker struct{ mock.Mock }

func (m *mockLinker) EnsureLinked(ctx context.Context, audience *domain.Audience, segments []domain.Segment) (*domain.Audience, error) {
	args := m.Called(ctx, audience, segments)
	if res := args.Get(0); res != nil {
		return res.(*domain.Audience), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockWriter struct{ mock.Mock }

func (m *mockWriter) Write(audienceName string, result domain.QueryResult) (string, error) {
	args := m.Called(audienceName, result)
	return args.String(0), args.Error(1)
}

type mockUsage struct{ mock.Mock }

func (m *mockUsage) Usage(ctx context.Context) (domain.Usage, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(domain.Usage), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPrinter struct{ mock.Mock }

func (m *mockPrinter) PrintSegments(segments []domain.Segment)    { m.Called(segments) }
func (m *mockPrinter) PrintAudiences(audiences []domain.Audience) { m.Called(audiences) }
func (m *mockPrinter) PrintUsage(usage domain.Usage)              { m.Called(usage) }
