// internal/common/camunda/worker.go
package camunda

import (
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"bank-assistant/internal/common/config"
	"bank-assistant/internal/common/metrics"
)

// Workers owns the job workers opened on one client.
type Workers struct {
	client  *Client
	workers []worker.JobWorker
	logger  *zap.Logger
}

func NewWorkers(client *Client, logger *zap.Logger) *Workers {
	return &Workers{client: client, logger: logger}
}

// Register opens a job worker for taskType unless it is disabled in config.
func (w *Workers) Register(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
	if !wcfg.Enabled {
		w.logger.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	jw := w.client.GetClient().NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	w.workers = append(w.workers, jw)
	w.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
	)
}

func (w *Workers) Count() int {
	return len(w.workers)
}

// Close stops every worker and then the client.
func (w *Workers) Close() {
	for _, jw := range w.workers {
		jw.Close()
		jw.AwaitClose()
	}
	w.workers = nil
	if err := w.client.Close(); err != nil {
		w.logger.Warn("zeebe client close failed", zap.Error(err))
	}
}

func instrument(taskType string, handler worker.JobHandler) worker.JobHandler {
	gauge := metrics.WorkerJobsActive.WithLabelValues(taskType)
	return func(client worker.JobClient, job entities.Job) {
		gauge.Inc()
		defer gauge.Dec()
		handler(client, job)
	}
}
