package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/qualichat/qc-backend/internal/analysis/aggregate"
	"github.com/qualichat/qc-backend/internal/analysis/classifier"
	"github.com/qualichat/qc-backend/internal/analysis/compose"
	"github.com/qualichat/qc-backend/internal/api"
	chatapi "github.com/qualichat/qc-backend/internal/api/chat"
	"github.com/qualichat/qc-backend/internal/config"
	"github.com/qualichat/qc-backend/internal/dataset"
	"github.com/qualichat/qc-backend/internal/integration/render"
	"github.com/qualichat/qc-backend/internal/pkg/validator"
	"github.com/qualichat/qc-backend/internal/repository"
	"github.com/qualichat/qc-backend/internal/session"
	"github.com/qualichat/qc-backend/internal/telegram"
	"github.com/qualichat/qc-backend/internal/usecase/chat"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	chatUC, err := buildChatUsecase(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Setup API handlers
	chatHandler := chatapi.NewHandler(chatUC, cfg.FileUploadCfg.MaxUploadSize)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(chatHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}

// buildChatUsecase wires the analysis pipeline, session store,
// repositories and the chart render connector.
func buildChatUsecase(cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) (*chat.ChatUsecase, error) {
	// Initialize repositories
	messageRepo := repository.NewMessagePostgres(db)
	datasetRepo := repository.NewDatasetPostgres(db)
	logger.Info("Repositories initialized")

	// Initialize chart render connector (with mock support)
	var renderConnector chat.RenderConnector
	if cfg.EnableMocks {
		logger.Info("Using mock connector for chart rendering")
		renderConnector = render.NewMockConnector(logger)
	} else {
		logger.Info("Using real connector for chart rendering")
		renderConnector = render.NewConnector(cfg.RenderConnectorCfg, logger)
	}

	// Initialize session store and analysis pipeline
	store := session.NewStore(cfg.SessionCfg.TTL, cfg.SessionCfg.CleanupInterval)
	loader := dataset.NewLoader()
	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	logger.Info("Session store and validators initialized")

	chatUC := chat.NewUsecase(
		store,
		loader,
		classifier.New(),
		aggregate.NewEngine(),
		compose.NewComposer(),
		fileValidator,
		messageRepo,
		datasetRepo,
		renderConnector,
		cfg.ColumnMapping,
		logger,
	)
	logger.Info("Use cases initialized")

	return chatUC, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (*telegram.Bot, *zap.Logger, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	chatUC, err := buildChatUsecase(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	// Initialize Telegram bot
	bot, err := telegram.NewBot(&cfg.TelegramCfg, chatUC, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, logger, nil
}
