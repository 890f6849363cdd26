package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/qualichat/qc-backend/internal/analysis/aggregate"
	"github.com/qualichat/qc-backend/internal/analysis/classifier"
	"github.com/qualichat/qc-backend/internal/analysis/compose"
	"github.com/qualichat/qc-backend/internal/dataset"
	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/qualichat/qc-backend/internal/pkg/formatter"
	"github.com/qualichat/qc-backend/internal/pkg/logger"
	"github.com/qualichat/qc-backend/internal/pkg/validator"
	"github.com/qualichat/qc-backend/internal/repository"
	"github.com/qualichat/qc-backend/internal/session"
)

// ChatUsecase implements the question-answer loop over an uploaded
// QC spreadsheet: classify the turn, aggregate, compose the reply,
// then update conversation context and persist the transcript.
type ChatUsecase struct {
	store          *session.Store
	loader         *dataset.Loader
	classifier     *classifier.Classifier
	engine         aggregate.Aggregator
	composer       *compose.Composer
	validator      *validator.Validator
	messageRepo    repository.MessageRepository
	datasetRepo    repository.DatasetRepository
	renderer       RenderConnector
	formatters     *formatter.Factory
	columnMapping  entity.ColumnMapping
	logger         *zap.Logger
}

func NewUsecase(
	store *session.Store,
	loader *dataset.Loader,
	cls *classifier.Classifier,
	engine aggregate.Aggregator,
	composer *compose.Composer,
	validator *validator.Validator,
	messageRepo repository.MessageRepository,
	datasetRepo repository.DatasetRepository,
	renderer RenderConnector,
	columnMapping entity.ColumnMapping,
	log *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		store:         store,
		loader:        loader,
		classifier:    cls,
		engine:        engine,
		composer:      composer,
		validator:     validator,
		messageRepo:   messageRepo,
		datasetRepo:   datasetRepo,
		renderer:      renderer,
		formatters:    formatter.NewFactory(),
		columnMapping: columnMapping,
		logger:        log,
	}
}

// StartSession registers a new in-memory session.
func (uc *ChatUsecase) StartSession(ctx context.Context) (*entity.ChatSession, error) {
	sess := uc.store.Create()
	ctxzap.Info(ctx, "session started", zap.String("session_id", sess.ID))
	return sess.Info(), nil
}

// GetSession returns the session summary and its persisted transcript.
func (uc *ChatUsecase) GetSession(ctx context.Context, sessionID string) (*entity.ChatSession, []*entity.Message, error) {
	sess, err := uc.store.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := uc.messageRepo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}

	return sess.Info(), messages, nil
}

// UploadDataset validates and loads a multipart spreadsheet upload.
func (uc *ChatUsecase) UploadDataset(ctx context.Context, sessionID string, fh *multipart.FileHeader) (*entity.ChatSession, error) {
	if err := uc.validator.ValidateDatasetUpload(fh); err != nil {
		return nil, err
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return uc.UploadDatasetStream(ctx, sessionID, fh.Filename, fh.Size, file)
}

// UploadDatasetStream parses the spreadsheet, resolves the column
// mapping and atomically swaps it into the session. The previous
// dataset, if any, is replaced wholesale and the conversation context
// cleared.
func (uc *ChatUsecase) UploadDatasetStream(ctx context.Context, sessionID, filename string, size int64, r io.Reader) (*entity.ChatSession, error) {
	ctx = logger.WithSession(ctx, sessionID)

	sess, err := uc.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := uc.validator.ValidateDatasetFile(filename, size); err != nil {
		return nil, err
	}

	table, err := uc.loader.Load(filename, io.LimitReader(r, size))
	if err != nil {
		return nil, err
	}

	mapping, err := dataset.ResolveMapping(table, uc.columnMapping)
	if err != nil {
		return nil, err
	}

	meta := entity.DatasetMeta{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Filename:   validator.SanitizeFilename(filename),
		Rows:       table.Rows(),
		Columns:    table.ColumnNames(),
		Mapping:    mapping,
		UploadedAt: time.Now().UTC(),
	}

	sess.SwapDataset(&session.Dataset{
		Table:    table,
		Mapping:  mapping,
		Meta:     meta,
		Entities: table.DistinctStrings(mapping.Identifier),
	})

	if err := uc.datasetRepo.CreateDataset(ctx, &meta); err != nil {
		// The session already has the dataset; a failed audit record
		// must not fail the upload.
		ctxzap.Warn(ctx, "failed to persist dataset record", zap.Error(err))
	}

	ctxzap.Info(ctx, "dataset uploaded",
		zap.String("filename", meta.Filename),
		zap.Int("rows", meta.Rows),
		zap.Int("columns", len(meta.Columns)),
	)

	return sess.Info(), nil
}

// HandleTurn runs one question through the analysis pipeline.
// Recoverable problems (no dataset yet, ambiguous reference, unknown
// part) come back as friendly assistant text, not errors; errors are
// reserved for missing sessions, invalid input and infrastructure
// failures.
func (uc *ChatUsecase) HandleTurn(ctx context.Context, sessionID string, req *entity.TurnRequest) (*entity.TurnReply, error) {
	ctx = logger.WithSession(ctx, sessionID)

	sess, err := uc.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := uc.validator.ValidateTurn(req); err != nil {
		return nil, err
	}

	if err := uc.saveMessage(ctx, sessionID, entity.RoleUser, req.Text, nil); err != nil {
		return nil, err
	}

	reply, intent, ok := uc.answer(ctx, sess, req.Text)

	if ok {
		sess.UpdateContext(intent)
	}

	if reply.Chart != nil && uc.renderer != nil {
		image, renderErr := uc.renderer.RenderChart(ctx, reply.Chart)
		if renderErr != nil {
			// The descriptor still goes out; the client can render
			// it locally or retry the image later.
			ctxzap.Warn(ctx, "chart render failed", zap.Error(renderErr))
		} else {
			reply.Image = image
		}
	}

	if err := uc.saveMessage(ctx, sessionID, entity.RoleAssistant, reply.Text, reply.Chart); err != nil {
		return nil, err
	}

	return reply, nil
}

// answer resolves the turn into a reply. The third return value
// reports whether an aggregation succeeded and context should update.
func (uc *ChatUsecase) answer(ctx context.Context, sess *session.Session, text string) (*entity.TurnReply, entity.Intent, bool) {
	ds := sess.Dataset()

	snap := classifier.Snapshot{}
	convCtx := sess.Context()
	snap.LastEntity = convCtx.LastEntity
	snap.LastIntent = convCtx.LastIntent
	if ds != nil {
		snap.Entities = ds.Entities
	}

	intent, err := uc.classifier.Classify(text, snap)
	if err != nil {
		if errors.Is(err, entity.ErrAmbiguousReference) {
			return &entity.TurnReply{Text: ambiguousReferenceText}, intent, false
		}
		ctxzap.Error(ctx, "classification failed", zap.Error(err))
		return &entity.TurnReply{Text: unknownIntentText}, intent, false
	}

	ctxzap.Info(ctx, "turn classified",
		zap.String("intent", string(intent.Tag)),
		zap.String("entity", intent.EntityName),
		zap.Bool("wants_chart", intent.WantsChart),
	)

	switch intent.Tag {
	case entity.IntentHelp:
		return &entity.TurnReply{Text: uc.composer.ComposeHelp(sess.Info())}, intent, false
	case entity.IntentUnknown:
		return &entity.TurnReply{Text: unknownIntentText}, intent, false
	}

	if ds == nil {
		return &entity.TurnReply{Text: noDatasetText}, intent, false
	}

	result, err := uc.engine.Aggregate(ds.Table, ds.Mapping, intent)
	if err != nil {
		return uc.aggregationErrorReply(ctx, err, intent, ds), intent, false
	}

	replyText, chart := uc.composer.Compose(result, intent)

	return &entity.TurnReply{Text: replyText, Chart: chart}, intent, true
}

// ResetSession clears the conversation context but keeps the dataset.
func (uc *ChatUsecase) ResetSession(ctx context.Context, sessionID string) error {
	sess, err := uc.store.Get(sessionID)
	if err != nil {
		return err
	}

	sess.ResetContext()
	ctxzap.Info(logger.WithSession(ctx, sessionID), "conversation context reset")
	return nil
}

// ExportReport renders the session transcript in the requested format.
func (uc *ChatUsecase) ExportReport(ctx context.Context, sessionID string, format entity.ResultFormat) ([]byte, string, string, error) {
	ctx = logger.WithSession(ctx, sessionID)

	sess, err := uc.store.Get(sessionID)
	if err != nil {
		return nil, "", "", err
	}

	messages, err := uc.messageRepo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, "", "", fmt.Errorf("list messages: %w", err)
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: format %s", entity.ErrInvalidParameter, format)
	}

	content, err := f.Format(transcriptText(sess.Info(), messages))
	if err != nil {
		return nil, "", "", fmt.Errorf("format report: %w", err)
	}

	filename := "qc-report-" + sessionID[:8] + f.FileExtension()
	ctxzap.Info(ctx, "report exported",
		zap.String("format", string(format)),
		zap.Int("messages", len(messages)),
	)

	return content, f.ContentType(), filename, nil
}

func (uc *ChatUsecase) saveMessage(ctx context.Context, sessionID string, role entity.MessageRole, text string, chart *entity.ChartDescriptor) error {
	msg := &entity.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		Chart:     chart,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.messageRepo.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (uc *ChatUsecase) aggregationErrorReply(ctx context.Context, err error, intent entity.Intent, ds *session.Dataset) *entity.TurnReply {
	switch {
	case errors.Is(err, entity.ErrUnknownEntity):
		suggestions := classifier.Suggest(intent.EntityName, ds.Entities, maxSuggestions)
		return &entity.TurnReply{Text: unknownEntityText(intent.EntityName, suggestions)}
	case errors.Is(err, entity.ErrMissingColumn):
		return &entity.TurnReply{Text: missingColumnText(err)}
	default:
		ctxzap.Error(ctx, "aggregation failed", zap.Error(err))
		return &entity.TurnReply{Text: aggregationFailedText}
	}
}
