package services

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/stretchr/testify/mock"

	"audience-client/internal/domain"
)

// mockSegmentAPI - мок для ports.SegmentAPI.
type mockSegmentAPI struct {
	mock.Mock
}

func (m *mockSegmentAPI) ListSegments(ctx context.Context, cursor string) (domain.Page[domain.Segment], error) {
	args := m.Called(ctx, cursor)
	return args.Get(0).(domain.Page[domain.Segment]), args.Error(1)
}

func (m *mockSegmentAPI) CreateSegment(ctx context.Context, req domain.NewSegment) (*domain.Segment, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*domain.Segment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSegmentAPI) AppendSegmentIDs(ctx context.Context, segmentID string, userIDs []string) error {
	args := m.Called(ctx, segmentID, userIDs)
	return args.Error(0)
}

func (m *mockSegmentAPI) GetSegment(ctx context.Context, id string) (*domain.Segment, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*domain.Segment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSegmentAPI) DeleteSegment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// mockAudienceAPI - мок для ports.AudienceAPI.
type mockAudienceAPI struct {
	mock.Mock
}

func (m *mockAudienceAPI) ListAudiences(ctx context.Context, cursor string) (domain.Page[domain.Audience], error) {
	args := m.Called(ctx, cursor)
	return args.Get(0).(domain.Page[domain.Audience]), args.Error(1)
}

func (m *mockAudienceAPI) CreateAudience(ctx context.Context, name string, segmentIDs []string) (*domain.Audience, error) {
	args := m.Called(ctx, name, segmentIDs)
	if res := args.Get(0); res != nil {
		return res.(*domain.Audience), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAudienceAPI) GetAudience(ctx context.Context, id string) (*domain.Audience, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*domain.Audience), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAudienceAPI) DeleteAudience(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAudienceAPI) QueryAudience(ctx context.Context, id string, groupings domain.Groupings) (domain.QueryResult, error) {
	args := m.Called(ctx, id, groupings)
	if res := args.Get(0); res != nil {
		return res.(domain.QueryResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func segmentPage(next string, segs ...domain.Segment) domain.Page[domain.Segment] {
	return domain.Page[domain.Segment]{Items: segs, Next: next}
}

func audiencePage(next string, auds ...domain.Audience) domain.Page[domain.Audience] {
	return domain.Page[domain.Audience]{Items: auds, Next: next}
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "u" + strconv.Itoa(i)
	}
	return ids
}
