package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"taskhub/internal/bot"
	"taskhub/internal/config"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	loc := cfg.Location()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	completionRepo := repository.NewCompletionRepository(db)

	taskSvc := service.NewTaskService(taskRepo, loc)
	completionTracker := service.NewCompletionTracker(completionRepo, taskRepo)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, taskSvc, completionTracker, loc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	dispatcher := service.NewDispatcher(taskRepo, telegramBot, loc, log)

	scheduler := service.NewSchedulerService(loc)
	if _, err := scheduler.ScheduleInterval(cfg.PollInterval, func() {
		tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := dispatcher.Tick(tickCtx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("dispatch tick")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule dispatch")
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Dur("poll_interval", cfg.PollInterval).Str("timezone", loc.String()).Msg("taskhub bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
