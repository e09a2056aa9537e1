package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/streamgate/access-server-go/internal/model"
)

type mockUsageLogRepo struct {
	mock.Mock
}

func (m *mockUsageLogRepo) Append(ctx context.Context, params model.AppendUsageLogParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockUsageLogRepo) FindRecent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UsageLog), args.Error(1)
}

func (m *mockUsageLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func TestRecord_AppendsEntry(t *testing.T) {
	repo := new(mockUsageLogRepo)
	ip := "1.2.3.4"
	repo.On("Append", mock.Anything, model.AppendUsageLogParams{
		Code:    "ABCD1234",
		Action:  model.ActionUsed,
		Details: "use 1 of 2",
		IP:      &ip,
	}).Return(nil)

	recorder := NewRecorder(repo)
	recorder.Record(context.Background(), model.ActionUsed, "ABCD1234", "use 1 of 2", &ip)

	repo.AssertExpectations(t)
}

func TestRecord_SwallowsSinkFailure(t *testing.T) {
	repo := new(mockUsageLogRepo)
	repo.On("Append", mock.Anything, mock.AnythingOfType("model.AppendUsageLogParams")).
		Return(errors.New("sink unavailable"))

	recorder := NewRecorder(repo)

	// Must not panic and must not surface the failure to the caller.
	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), model.ActionGenerated, "ABCD1234", "one-time", nil)
	})
	repo.AssertExpectations(t)
}
