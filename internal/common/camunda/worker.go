package camunda

import (
	"time"

	"investor-matching/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler completes or fails the job itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Registration binds a handler to its task type.
type Registration struct {
	TaskType      string
	Handler       JobHandler
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

func NewWorker(client zbc.Client, reg Registration, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": reg.TaskType})

	step := client.NewJobWorker().
		JobType(reg.TaskType).
		Handler(reg.Handler.Handle).
		MaxJobsActive(reg.MaxJobsActive)
	if reg.Timeout > 0 {
		step = step.Timeout(reg.Timeout)
	}

	w := &CamundaWorker{worker: step.Open(), logger: log, taskType: reg.TaskType}
	log.Info("worker started", nil)
	return w
}

// Stop closes the job stream and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

// Pool owns every worker opened against one client.
type Pool struct {
	workers []*CamundaWorker
}

func StartPool(client zbc.Client, regs []Registration, log logger.Logger) *Pool {
	p := &Pool{}
	for _, reg := range regs {
		p.workers = append(p.workers, NewWorker(client, reg, log))
	}
	return p
}

func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
}
