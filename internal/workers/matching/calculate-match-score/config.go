package calculatematchscore

import (
	"time"

	"investor-matching/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func LoadConfig(app *config.Config) *Config {
	w := app.GetWorkerConfig(TaskType)
	cfg := &Config{
		Enabled:       w.Enabled,
		MaxJobsActive: w.MaxJobsActive,
		Timeout:       config.GetDuration(w.Timeout),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 5
	}
	return cfg
}
