package recomputematches

import (
	"time"

	"investor-matching/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

// LoadConfig defaults to a longer timeout than single-match jobs since one job scores a whole catalogue.
func LoadConfig(app *config.Config) *Config {
	w := app.GetWorkerConfig(TaskType)
	cfg := &Config{
		Enabled:       w.Enabled,
		MaxJobsActive: w.MaxJobsActive,
		Timeout:       config.GetDuration(w.Timeout),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 1
	}
	return cfg
}
