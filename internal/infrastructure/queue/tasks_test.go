package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/review-refinery/internal/core/services/batch"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

type runnerFunc func(ctx context.Context, job batch.Job) (*batch.Report, error)

func (f runnerFunc) Run(ctx context.Context, job batch.Job) (*batch.Report, error) {
	return f(ctx, job)
}

func testJob() batch.Job {
	return batch.Job{
		BatchID:     uuid.New(),
		InputPath:   "uploads/reviews.csv",
		OutputPath:  "processed/reviews.csv",
		Deduplicate: true,
	}
}

func TestNewCleanDataTask(t *testing.T) {
	job := testJob()

	task, err := NewCleanDataTask(job)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeCleanData, task.Type())

	decoded, err := ParseCleanDataTask(task)
	require.NoError(t, err)
	assert.Equal(t, job, decoded)

	_, err = NewCleanDataTask(batch.Job{InputPath: "in.csv"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}

func TestCleanDataHandler(t *testing.T) {
	job := testJob()
	var received batch.Job

	handler := NewCleanDataHandler(runnerFunc(func(ctx context.Context, j batch.Job) (*batch.Report, error) {
		received = j
		return &batch.Report{BatchID: j.BatchID, WrittenRecords: 3}, nil
	}), nil)

	task, err := NewCleanDataTask(job)
	require.NoError(t, err)

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	assert.Equal(t, job, received)
}

func TestCleanDataHandler_SkipsRetry(t *testing.T) {
	called := false
	handler := NewCleanDataHandler(runnerFunc(func(ctx context.Context, j batch.Job) (*batch.Report, error) {
		called = true
		return nil, apperrors.ColumnNotFound("content", []string{"review"})
	}), nil)

	err := handler.ProcessTask(context.Background(), asynq.NewTask(TaskTypeCleanData, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.False(t, called)

	task, err := NewCleanDataTask(testJob())
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, called)
}

func TestCleanDataHandler_RetriesTransientErrors(t *testing.T) {
	transient := errors.New("connection reset")
	handler := NewCleanDataHandler(runnerFunc(func(ctx context.Context, j batch.Job) (*batch.Report, error) {
		return nil, apperrors.DatabaseError(transient)
	}), nil)

	task, err := NewCleanDataTask(testJob())
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, transient)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestRetryDelay(t *testing.T) {
	task := asynq.NewTask(TaskTypeCleanData, nil)

	assert.Equal(t, 2*time.Second, retryDelay(0, nil, task))
	assert.Equal(t, 8*time.Second, retryDelay(2, nil, task))
	assert.Equal(t, 10*time.Minute, retryDelay(50, nil, task))
}
