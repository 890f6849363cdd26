package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/qualichat/qc-backend/internal/config"
	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/qualichat/qc-backend/internal/telegram/middleware"
)

const greeting = "Hi! Send me a QC spreadsheet (.xlsx, .xls or .csv) as a " +
	"document and then ask questions about it, for example: " +
	"\"top 5 defects\" or \"rejection percentage for PART-101\".\n\n" +
	"Commands: /start, /help, /reset, /report [pdf|docx|markdown]"

// Bot bridges Telegram chats to chat sessions. Each Telegram chat is
// mapped to one backend session, recreated transparently when the
// session expires.
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.TelegramConfig
	usecase ChatUsecase
	logger  *zap.Logger

	loggingMW   *middleware.LoggingMiddleware
	recoveryMW  *middleware.RecoveryMiddleware
	rateLimitMW *middleware.RateLimiterMiddleware

	mu       sync.Mutex
	sessions map[int64]string

	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewBot creates and authorizes the Telegram bot
func NewBot(cfg *config.TelegramConfig, usecase ChatUsecase, logger *zap.Logger) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	bot := &Bot{
		api:      api,
		cfg:      cfg,
		usecase:  usecase,
		logger:   logger,
		sessions: make(map[int64]string),
		stopChan: make(chan struct{}),
	}

	bot.loggingMW = middleware.NewLoggingMiddleware(logger)
	bot.recoveryMW = middleware.NewRecoveryMiddleware(logger, api)
	bot.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
		api,
	)

	return bot, nil
}

// Start begins polling for updates
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update := <-b.updatesChan:
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(u)
			}(update)
		}
	}
}

func (b *Bot) handleUpdateWithMiddleware(update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(u3)
			})
		})
	})
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	ctx := ctxzap.ToContext(context.Background(), b.logger)
	msg := update.Message

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.mu.Lock()
		delete(b.sessions, msg.Chat.ID)
		b.mu.Unlock()
		if _, err := b.session(ctx, msg.Chat.ID); err != nil {
			b.sendError(msg.Chat.ID, "could not start a session, try again later")
			return
		}
		b.sendText(msg.Chat.ID, greeting)

	case "help":
		b.handleTurnText(ctx, msg.Chat.ID, "help")

	case "reset":
		sessionID, err := b.session(ctx, msg.Chat.ID)
		if err == nil {
			err = b.usecase.ResetSession(ctx, sessionID)
		}
		if err != nil {
			b.sendError(msg.Chat.ID, "could not reset the conversation")
			return
		}
		b.sendText(msg.Chat.ID, "Conversation context cleared. The dataset stays loaded.")

	case "report":
		b.handleReport(ctx, msg)

	default:
		b.sendText(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	format := entity.FormatMarkdown
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		format = entity.ResultFormat(arg)
		if !format.IsValid() {
			b.sendText(msg.Chat.ID, "Unknown report format. Use: markdown, pdf or docx.")
			return
		}
	}

	sessionID, err := b.session(ctx, msg.Chat.ID)
	if err != nil {
		b.sendError(msg.Chat.ID, "could not resolve your session")
		return
	}

	content, _, filename, err := b.usecase.ExportReport(ctx, sessionID, format)
	if err != nil {
		ctxzap.Error(ctx, "report export failed", zap.Error(err))
		b.sendError(msg.Chat.ID, "could not build the report")
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: content,
	})
	if _, err := b.api.Send(doc); err != nil {
		ctxzap.Error(ctx, "failed to send report document", zap.Error(err))
	}
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	sessionID, err := b.session(ctx, msg.Chat.ID)
	if err != nil {
		b.sendError(msg.Chat.ID, "could not resolve your session")
		return
	}

	doc := msg.Document
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		ctxzap.Error(ctx, "failed to resolve file URL", zap.Error(err))
		b.sendError(msg.Chat.ID, "could not download the file from Telegram")
		return
	}

	resp, err := http.Get(url)
	if err != nil {
		ctxzap.Error(ctx, "failed to download file", zap.Error(err))
		b.sendError(msg.Chat.ID, "could not download the file from Telegram")
		return
	}
	defer resp.Body.Close()

	session, err := b.usecase.UploadDatasetStream(ctx, sessionID, doc.FileName, int64(doc.FileSize), resp.Body)
	if err != nil {
		ctxzap.Warn(ctx, "dataset upload failed", zap.Error(err))
		b.sendText(msg.Chat.ID, uploadErrorText(err))
		return
	}

	b.sendText(msg.Chat.ID, fmt.Sprintf(
		"Loaded %s: %d rows, %d parts. Ask away!",
		session.DatasetName, session.DatasetRows, len(session.Entities),
	))
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	b.handleTurnText(ctx, msg.Chat.ID, msg.Text)
}

func (b *Bot) handleTurnText(ctx context.Context, chatID int64, text string) {
	sessionID, err := b.session(ctx, chatID)
	if err != nil {
		b.sendError(chatID, "could not resolve your session")
		return
	}

	reply, err := b.usecase.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: text})
	if errors.Is(err, entity.ErrSessionNotFound) {
		// Session expired between turns; start a fresh one and retry.
		b.mu.Lock()
		delete(b.sessions, chatID)
		b.mu.Unlock()
		if sessionID, err = b.session(ctx, chatID); err == nil {
			reply, err = b.usecase.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: text})
		}
	}
	if err != nil {
		ctxzap.Error(ctx, "turn failed", zap.Error(err))
		b.sendError(chatID, "something went wrong, please try again")
		return
	}

	b.sendText(chatID, reply.Text)

	if reply.Image != nil {
		raw, decErr := base64.StdEncoding.DecodeString(reply.Image.ImageBase64)
		if decErr != nil {
			ctxzap.Warn(ctx, "invalid chart image payload", zap.Error(decErr))
			return
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
			Name:  "chart.png",
			Bytes: raw,
		})
		if _, sendErr := b.api.Send(photo); sendErr != nil {
			ctxzap.Error(ctx, "failed to send chart image", zap.Error(sendErr))
		}
	}
}

// session returns the backend session bound to the chat, creating one
// on first contact.
func (b *Bot) session(ctx context.Context, chatID int64) (string, error) {
	b.mu.Lock()
	id, ok := b.sessions[chatID]
	b.mu.Unlock()
	if ok {
		return id, nil
	}

	sess, err := b.usecase.StartSession(ctx)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	b.sessions[chatID] = sess.ID
	b.mu.Unlock()

	ctxzap.Info(ctx, "bound telegram chat to session",
		zap.Int64("chat_id", chatID),
		zap.String("session_id", sess.ID),
	)
	return sess.ID, nil
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendText(chatID, "Sorry, "+text+".")
}

func uploadErrorText(err error) string {
	switch {
	case errors.Is(err, entity.ErrInvalidExtension):
		return "I can only read .xlsx, .xls and .csv files."
	case errors.Is(err, entity.ErrFileTooLarge):
		return "That file is too large for me to process."
	case errors.Is(err, entity.ErrMissingColumn), errors.Is(err, entity.ErrInvalidTable),
		errors.Is(err, entity.ErrEmptyDataset), errors.Is(err, entity.ErrInvalidFile):
		return fmt.Sprintf("I could not make sense of that spreadsheet: %v.", err)
	default:
		return "Something went wrong while loading the file, please try again."
	}
}
