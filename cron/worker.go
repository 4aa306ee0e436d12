package cron

import (
	"context"
	"log"
	"time"

	"medichat/config"
	"medichat/services/sweeper"
	"medichat/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeSweepRun = "sweep:run"

// InitSweepWorker runs the reconciliation sweeper in the background: an asynq
// server consumes sweep tasks, and a scheduler enqueues one every sweep
// interval. Sweeps are idempotent, so an occasional double run is harmless.
func InitSweepWorker(sweepSvc sweeper.SweeperService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			// Sweep passes touch overlapping records; one at a time.
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSweepRun, handleSweepTask(sweepSvc))

	go func() {
		log.Println("[SweepWorker] starting async worker...")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)
				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runSweepScheduler(redisOpts)
}

func runSweepScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{})

	interval := config.AppConfig.SweepEvery
	if interval <= 0 {
		interval = 30 * time.Second
	}
	spec := "@every " + interval.String()
	if _, err := scheduler.Register(spec, asynq.NewTask(TypeSweepRun, nil)); err != nil {
		log.Fatalf("[SweepWorker] failed to register sweep schedule: %v", err)
	}
	if err := scheduler.Run(); err != nil {
		log.Fatalf("[SweepWorker] scheduler stopped: %v", err)
	}
}

func handleSweepTask(sweepSvc sweeper.SweeperService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		if _, err := sweepSvc.Run(ctx); err != nil {
			utils.GetLogger().Error("Sweep run failed", zap.Error(err))
			return err
		}
		return nil
	}
}
