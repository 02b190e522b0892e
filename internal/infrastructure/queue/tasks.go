package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alejandroruanova/review-refinery/internal/core/services/batch"
	apperrors "github.com/alejandroruanova/review-refinery/internal/pkg/errors"
)

// Task types
const (
	TaskTypeCleanData = "clean:data"
)

// JobRunner executes a refinery job
type JobRunner interface {
	Run(ctx context.Context, job batch.Job) (*batch.Report, error)
}

// NewCleanDataTask builds a clean:data task carrying the job as JSON.
// Tasks go to the default queue, are retried 3 times and time out after
// 30 minutes unless opts say otherwise.
func NewCleanDataTask(job batch.Job, opts ...asynq.Option) (*asynq.Task, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	defaults := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30 * time.Minute),
	}

	return asynq.NewTask(TaskTypeCleanData, payload, append(defaults, opts...)...), nil
}

// ParseCleanDataTask decodes the job of a clean:data task
func ParseCleanDataTask(task *asynq.Task) (batch.Job, error) {
	var job batch.Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return job, apperrors.QueueError(err, "invalid clean:data payload")
	}
	return job, job.Validate()
}

// NewCleanDataHandler runs queued jobs. Malformed payloads and bad
// requests are not retried.
func NewCleanDataHandler(runner JobRunner, logger *slog.Logger) asynq.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		job, err := ParseCleanDataTask(task)
		if err != nil {
			logger.Error("dropping clean:data task", slog.Any("error", err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("processing clean:data task",
			slog.String("batch_id", job.BatchID.String()),
			slog.String("input", job.InputPath))

		report, err := runner.Run(ctx, job)
		if err != nil {
			if isPermanent(err) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}

		if w := task.ResultWriter(); w != nil {
			if result, err := json.Marshal(report); err == nil {
				if _, err := w.Write(result); err != nil {
					logger.Warn("failed to write task result", slog.Any("error", err))
				}
			}
		}

		return nil
	})
}

// isPermanent reports errors that a retry cannot fix
func isPermanent(err error) bool {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		return false
	}

	switch appErr.Code {
	case apperrors.ErrCodeBadRequest,
		apperrors.ErrCodeInvalidFile,
		apperrors.ErrCodeUnsupportedFormat,
		apperrors.ErrCodeFileParseError,
		apperrors.ErrCodeColumnNotFound,
		apperrors.ErrCodeRefineryNotFound:
		return true
	}
	return false
}
