package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentline/config"
	agreementRepo "rentline/database/repository/agreement"
	"rentline/services/agreement"
	"rentline/services/tasks"
	"rentline/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Generator produces the document for a signed agreement.
type Generator interface {
	GenerateDocument(ctx context.Context, agreementID string) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, agreementID string) error

func (f GeneratorFunc) GenerateDocument(ctx context.Context, agreementID string) error {
	return f(ctx, agreementID)
}

// ErrPermanent marks generation failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent generation failure")

// AgreementGenerator runs generation through svc. Missing agreements and
// unsigned ones are permanent failures.
func AgreementGenerator(svc agreement.AgreementService) Generator {
	return GeneratorFunc(func(ctx context.Context, agreementID string) error {
		a, err := svc.Get(ctx, agreementID)
		if err != nil {
			if errors.Is(err, agreementRepo.ErrAgreementNotFound) {
				return fmt.Errorf("%w: %v", ErrPermanent, err)
			}
			return err
		}
		if a.DocumentURL != "" && a.DocumentGeneratedAt != nil {
			// Already generated by an earlier delivery of the same task.
			return nil
		}
		if _, err := svc.Generate(ctx, agreementID); err != nil {
			if errors.Is(err, agreement.ErrNotFullySigned) {
				return fmt.Errorf("%w: %v", ErrPermanent, err)
			}
			return err
		}
		return nil
	})
}

// NewMux routes background tasks to their handlers.
func NewMux(gen Generator, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeGenerateAgreement, HandleGenerateAgreement(gen, logger))
	return mux
}

// InitAgreementWorker runs the agreement worker in the background until
// ctx is cancelled.
func InitAgreementWorker(ctx context.Context, gen Generator, logger *zap.Logger) {
	concurrency := config.AppConfig.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	srv := asynq.NewServer(
		utils.QueueRedisOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger:   zapAsynqLogger{logger.Sugar()},
			LogLevel: asynq.InfoLevel,
		},
	)
	mux := NewMux(gen, logger)

	go func() {
		logger.Info("starting agreement worker", zap.Int("concurrency", concurrency))
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Start(mux); err != nil {
				logger.Error("failed to start agreement worker",
					zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
				if attempts == maxAttempts {
					logger.Error("agreement worker gave up; signed agreements must be generated manually")
					return
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
				continue
			}
			break
		}
		<-ctx.Done()
		srv.Shutdown()
		logger.Info("agreement worker stopped")
	}()
}

// HandleGenerateAgreement renders and stores the agreement named in the
// task. Failures marked ErrPermanent are not retried.
func HandleGenerateAgreement(gen Generator, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseGenerateAgreementPayload(task)
		if err != nil {
			logger.Error("invalid agreement task payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("generating agreement document", zap.String("agreementID", p.AgreementID))
		if err := gen.GenerateDocument(ctx, p.AgreementID); err != nil {
			logger.Error("agreement generation failed", zap.String("agreementID", p.AgreementID), zap.Error(err))
			if errors.Is(err, ErrPermanent) {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// zapAsynqLogger routes asynq's own logging through zap.
type zapAsynqLogger struct {
	s *zap.SugaredLogger
}

func (l zapAsynqLogger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l zapAsynqLogger) Info(args ...interface{})  { l.s.Info(args...) }
func (l zapAsynqLogger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l zapAsynqLogger) Error(args ...interface{}) { l.s.Error(args...) }
func (l zapAsynqLogger) Fatal(args ...interface{}) { l.s.Fatal(args...) }
