package worker

import (
	"context"
	"fmt"

	"echoloom-api/core/config"
	"echoloom-api/core/logger"
	meetingService "echoloom-api/modules/meeting/service"

	"github.com/hibiken/asynq"
)

const TypeRoomSweep = "room:sweep"

// Worker runs background tasks over asynq. The only task today is the
// hourly sweep that deletes provider rooms of long-ended meetings.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func New(cfg config.RedisConfig, meetings meetingService.MeetingServiceInterface) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Logger:      asynqLogger{},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRoomSweep, func(ctx context.Context, t *asynq.Task) error {
		return meetings.SweepExpiredRooms(ctx)
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: asynqLogger{}})

	return &Worker{server: server, scheduler: scheduler, mux: mux}
}

// Start launches the task server and the periodic schedule. Both run until
// Shutdown.
func (w *Worker) Start() error {
	// Sweeps are idempotent, so overlapping runs after a restart are fine.
	if _, err := w.scheduler.Register("@every 1h", asynq.NewTask(TypeRoomSweep, nil)); err != nil {
		return fmt.Errorf("register room sweep: %w", err)
	}

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}

	logger.Info("Worker:Start:Running")
	return nil
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	logger.Info("Worker:Shutdown:Done")
}

// asynqLogger routes asynq's internal logging through the app logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.Debug("Worker:asynq", args...) }
func (asynqLogger) Info(args ...interface{})  { logger.Info("Worker:asynq", args...) }
func (asynqLogger) Warn(args ...interface{})  { logger.Warn("Worker:asynq", args...) }
func (asynqLogger) Error(args ...interface{}) { logger.Error("Worker:asynq", args...) }
func (asynqLogger) Fatal(args ...interface{}) { logger.Error("Worker:asynq", args...) }
