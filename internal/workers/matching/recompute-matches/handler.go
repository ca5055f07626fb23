package recomputematches

import (
	"context"
	"encoding/json"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/common/validation"
	"investor-matching/internal/matching/engine"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "recompute-matches"

var schema = validation.MustCompile(TaskType, `{
	"type": "object",
	"required": ["investorId"],
	"properties": {
		"investorId": {"type": "string", "minLength": 1}
	}
}`)

type Recomputer interface {
	RecomputeForInvestor(ctx context.Context, investorID string) (*engine.BatchResult, error)
}

type Handler struct {
	config     *Config
	recomputer Recomputer
	errors     *errors.JobErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, recomputer Recomputer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		recomputer: recomputer,
		errors:     errors.NewJobErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.run(ctx, job)
	if err != nil {
		code := string(errors.ErrCodeInternal)
		if stdErr, ok := errors.As(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) run(ctx context.Context, job entities.Job) (*Output, error) {
	raw := []byte(job.Variables)
	if err := schema.ValidateBytes(raw); err != nil {
		return nil, err
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewValidationError(errors.FieldError{Field: "(variables)", Message: err.Error(), Code: "invalid_json"})
	}
	return h.Execute(ctx, &input)
}

// Execute recomputes the investor's matches. Per-startup failures are reported in the output, not
// as a job failure.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.recomputer.RecomputeForInvestor(ctx, input.InvestorID)
	if err != nil {
		return nil, err
	}
	return &Output{
		Processed:   res.Processed,
		Upserted:    len(res.Upserted),
		Excluded:    len(res.Excluded),
		Failed:      res.Failed,
		HasFailures: len(res.Failed) > 0,
		DurationMs:  res.Duration.Milliseconds(),
	}, nil
}
