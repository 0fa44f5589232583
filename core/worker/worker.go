package worker

import (
	"context"

	"github.com/hibiken/asynq"

	"chatcal/core/config"
	"chatcal/core/constants"
	"chatcal/core/logger"
	"chatcal/modules/calendar/repository"
	"chatcal/modules/calendar/service"
)

// Worker runs the periodic maintenance tasks: calendar token keep-fresh and
// expired oauth-state cleanup.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	session   *service.CalendarSession
	states    repository.OAuthStateRepository
}

func New(cfg config.RedisConfig, session *service.CalendarSession, states repository.OAuthStateRepository) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	return &Worker{
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 2,
		}),
		scheduler: asynq.NewScheduler(redisOpt, nil),
		session:   session,
		states:    states,
	}
}

func (w *Worker) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(constants.TaskCredentialKeepFresh, w.handleKeepFresh)
	mux.HandleFunc(constants.TaskOAuthStateCleanup, w.handleStateCleanup)

	if _, err := w.scheduler.Register(constants.CredentialKeepFreshEvery,
		asynq.NewTask(constants.TaskCredentialKeepFresh, nil)); err != nil {
		logger.Error("Worker:Start:RegisterKeepFresh:Error", "error", err)
	}
	if _, err := w.scheduler.Register(constants.OAuthStateCleanupEvery,
		asynq.NewTask(constants.TaskOAuthStateCleanup, nil)); err != nil {
		logger.Error("Worker:Start:RegisterStateCleanup:Error", "error", err)
	}

	go func() {
		if err := w.server.Run(mux); err != nil {
			logger.Error("Worker:Server:Error", "error", err)
		}
	}()
	go func() {
		if err := w.scheduler.Run(); err != nil {
			logger.Error("Worker:Scheduler:Error", "error", err)
		}
	}()

	logger.Info("Background worker started")
}

func (w *Worker) Stop() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

// handleKeepFresh refreshes the calendar token ahead of expiry so
// interactive requests rarely pay the refresh round trip. A disconnected
// session is not an error.
func (w *Worker) handleKeepFresh(ctx context.Context, _ *asynq.Task) error {
	if err := w.session.RefreshIfExpiring(ctx, constants.CredentialRefreshWindow); err != nil {
		logger.Error("Worker:KeepFresh:Error", "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleStateCleanup(ctx context.Context, _ *asynq.Task) error {
	deleted, err := w.states.CleanupExpired(ctx)
	if err != nil {
		logger.Error("Worker:StateCleanup:Error", "error", err)
		return err
	}
	if deleted > 0 {
		logger.Info("Expired oauth states removed", "count", deleted)
	}
	return nil
}
