package camunda

import (
	"context"
	"time"

	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/metrics"
	"loan-assistant/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// completionCounter counts a job as completed when its handler builds the
// complete command.
type completionCounter struct {
	worker.JobClient
	taskType  string
	completed bool
}

func (c *completionCounter) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.completed = true
	metrics.WorkerJobsCompleted.WithLabelValues(c.taskType).Inc()
	return c.JobClient.NewCompleteJobCommand()
}

// Instrument records duration and completion for every job the handler runs.
// Failures are counted by the shared error handler.
func Instrument(taskType string, obs *observability.Observability, handler worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		counted := &completionCounter{JobClient: client, taskType: taskType}

		handler(counted, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())

		status := "failed"
		if counted.completed {
			status = "completed"
		}
		obs.RecordJobDuration(context.Background(), taskType, elapsed, status)
	}
}

// StartWorker opens a job worker for taskType unless it is disabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, obs *observability.Observability, log *zap.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, obs, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return w
}
