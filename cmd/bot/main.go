package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"routine_notification_bot/internal/app"
	"routine_notification_bot/internal/domain/form"
	"routine_notification_bot/internal/domain/schedule"
	"routine_notification_bot/internal/infra/cache"
	"routine_notification_bot/internal/infra/config"
	idb "routine_notification_bot/internal/infra/database"
	"routine_notification_bot/internal/infra/logger"
	"routine_notification_bot/internal/infra/scheduler"
	"routine_notification_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load(true)
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"admin_id":      cfg.AdminTelegramID,
		"form_language": cfg.FormLanguage,
		"normalization": cfg.NormalizationStrategy,
	}).Info("Routine Notification Bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.Migrate(ctx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database schema")
	}
	mainLogger.Info("Database connection established and schema applied.")

	// Initialize Repositories
	settingsRepo := idb.NewPostgresSettingsRepository(db)
	answerRepo := idb.NewPostgresAnswerRepository(db)
	dispatchRepo := idb.NewPostgresDispatchRepository(db)
	directoryRepo := idb.NewPostgresDirectoryRepository(db)

	clock := schedule.SystemClock{}
	dir := cache.NewDirectory(directoryRepo, cfg.DirectoryCacheTTL)
	mainLogger.Info("Repositories initialized.")

	catalogue, err := form.LoadCatalogue()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load questionnaire")
	}
	language := form.Language(cfg.FormLanguage)
	if catalogue.Form(language) == nil {
		mainLogger.WithField("form_language", cfg.FormLanguage).Fatal("Questionnaire is not available in this language")
	}
	normalizer, err := schedule.NormalizerByName(cfg.NormalizationStrategy)
	if err != nil {
		mainLogger.WithError(err).Fatal("Invalid normalization strategy")
	}

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	publisher := telegram.NewTelebotAdapter(bot, cfg.AdminTelegramID, logger.Component("telegram_publisher"))

	// Initialize Services
	notificationService := app.NewNotificationServiceImpl(settingsRepo, answerRepo, dispatchRepo, dir, publisher, clock, logger.Component("notification_service"))
	pendingService := app.NewPendingServiceImpl(settingsRepo, answerRepo, clock, logger.Component("pending_service"))
	answerService := app.NewAnswerServiceImpl(answerRepo, settingsRepo, dir, catalogue, app.AnswerOptions{
		Language:       language,
		HistoryWindows: cfg.HistoryWindows,
		Normalizer:     normalizer,
	}, clock, logger.Component("answer_service"))

	// Initialize RoutineScheduler
	routineScheduler := scheduler.NewRoutineScheduler(
		notificationService,
		settingsRepo,
		clock,
		logger.Component("scheduler"),
		cfg.CronSpecSettingsSync,
		cfg.ReminderOffsetDays,
	)
	if err := routineScheduler.AddMaintenanceJob(cfg.CronSpecSettingsSync, "directory_cache_purge", func() {
		dir.Purge()
		mainLogger.WithField("cached_lists", dir.Len()).Debug("Directory cache purged")
	}); err != nil {
		mainLogger.WithError(err).Fatal("Could not register cache purge job")
	}
	if err := routineScheduler.Start(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Could not start routine scheduler")
	}

	settingsService := app.NewSettingsServiceImpl(settingsRepo, dir, routineScheduler, clock, logger.Component("settings_service"))

	// Register Handlers
	services := telegram.Services{
		Directory:     dir,
		Linker:        dir.Linker(directoryRepo),
		Pending:       pendingService,
		Answers:       answerService,
		Settings:      settingsService,
		Notifications: notificationService,
		Catalogue:     catalogue,
		Language:      language,
		Clock:         clock,
		Dispatches:    dispatchRepo,
		Runs:          routineScheduler,
	}
	telegram.RegisterBotCommands(ctx, bot, cfg, services, logger.Component("bot"))
	telegram.RegisterAdminHandlers(ctx, bot, services, cfg.AdminTelegramID, logger.Component("admin"))
	mainLogger.Info("Command handlers registered.")

	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	routineScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
