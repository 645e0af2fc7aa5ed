package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"diabetesml/pkg/logging"
)

// Stage is one step of the offline training run.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes stages in order and stops at the first failure.
type Runner struct {
	stages []Stage
}

func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run returns the failing stage's error prefixed with its name.
func (r *Runner) Run(ctx context.Context) error {
	for _, s := range r.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := logging.Log.WithFields(logrus.Fields{"stage": s.Name()})
		log.Info("Stage started")
		start := time.Now()
		if err := s.Run(ctx); err != nil {
			log.WithError(err).Error("Stage failed")
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		logging.Log.WithFields(logrus.Fields{
			"stage":   s.Name(),
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("Stage completed")
	}
	return nil
}
