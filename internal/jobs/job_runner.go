package jobs

import (
	"memberhub-backend/internal/config"
	"memberhub-backend/internal/events"
	"memberhub-backend/internal/logger"
	"memberhub-backend/internal/repository"
	"memberhub-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	memberRepo repository.MembershipRepository
	reviewRepo repository.ReviewQueueRepository
	geoSvc     service.GeographyService
	memberSvc  service.MembershipService
	dispatcher *events.Dispatcher
	config     *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(
	memberRepo repository.MembershipRepository,
	reviewRepo repository.ReviewQueueRepository,
	geoSvc service.GeographyService,
	memberSvc service.MembershipService,
	dispatcher *events.Dispatcher,
	cfg *config.Config,
) *JobRunner {
	return &JobRunner{
		memberRepo: memberRepo,
		reviewRepo: reviewRepo,
		geoSvc:     geoSvc,
		memberSvc:  memberSvc,
		dispatcher: dispatcher,
		config:     cfg,
	}
}

// Config exposes the loaded configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
