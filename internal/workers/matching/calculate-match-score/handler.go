package calculatematchscore

import (
	"context"
	"encoding/json"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/common/validation"
	"investor-matching/internal/matching/engine"
	"investor-matching/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "calculate-match-score"

var schema = validation.MustCompile(TaskType, inputSchema)

// Matcher scores one startup for an investor and stores the match.
type Matcher interface {
	ComputeMatch(ctx context.Context, id models.Identity, startupID string) (*engine.ComputeResult, error)
}

type Handler struct {
	config  *Config
	matcher Matcher
	errors  *errors.JobErrorHandler
	logger  logger.Logger
}

func NewHandler(config *Config, matcher Matcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		matcher: matcher,
		errors:  errors.NewJobErrorHandler(log),
		logger:  log,
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

	input, err := parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	code := string(errors.ErrCodeInternal)
	if stdErr, ok := errors.As(err); ok {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.Variables)
	if err := schema.ValidateBytes(raw); err != nil {
		return nil, err
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewValidationError(errors.FieldError{Field: "(variables)", Message: err.Error(), Code: "invalid_json"})
	}
	return &input, nil
}

// Execute runs the scoring on behalf of the investor named in the process variables.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.matcher.ComputeMatch(ctx, models.Identity{UserID: input.InvestorID, Role: models.RoleInvestor}, input.StartupID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("match score calculated", map[string]interface{}{
		"investorId": input.InvestorID,
		"startupId":  input.StartupID,
		"score":      res.Match.OverallScore,
		"excluded":   res.Match.Breakdown.Excluded,
	})

	return &Output{
		MatchID:      res.Match.ID,
		StartupID:    res.Match.StartupID,
		OverallScore: res.Match.OverallScore,
		Status:       res.Match.Status,
		Excluded:     res.Match.Breakdown.Excluded,
		Breakdown:    res.Match.Breakdown,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
