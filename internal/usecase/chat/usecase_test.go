package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qualichat/qc-backend/internal/analysis/aggregate"
	"github.com/qualichat/qc-backend/internal/analysis/classifier"
	"github.com/qualichat/qc-backend/internal/analysis/compose"
	"github.com/qualichat/qc-backend/internal/config"
	"github.com/qualichat/qc-backend/internal/dataset"
	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/qualichat/qc-backend/internal/pkg/validator"
	"github.com/qualichat/qc-backend/internal/session"
)

const fixtureCSV = `Part Name,Date,Inspected Qty.,Total Rej Qty.,Burr,Damage
PART-101,2025-01-10,100,6,5,1
PART-101,2025-02-12,200,1,0,1
PART-202,2025-03-05,100,4,3,1
Bearing Housing,2025-03-20,50,2,1,1
`

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []*entity.Message
	createErr error
}

func (r *fakeMessageRepo) CreateMessage(_ context.Context, msg *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeMessageRepo) ListMessages(_ context.Context, sessionID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Message
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountMessages(ctx context.Context, sessionID string) (int, error) {
	msgs, err := r.ListMessages(ctx, sessionID)
	return len(msgs), err
}

type fakeDatasetRepo struct {
	created   []*entity.DatasetMeta
	createErr error
}

func (r *fakeDatasetRepo) CreateDataset(_ context.Context, meta *entity.DatasetMeta) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, meta)
	return nil
}

func (r *fakeDatasetRepo) LatestDataset(_ context.Context, _ string) (*entity.DatasetMeta, error) {
	if len(r.created) == 0 {
		return nil, nil
	}
	return r.created[len(r.created)-1], nil
}

type fakeRenderer struct {
	calls int
	err   error
}

func (f *fakeRenderer) RenderChart(_ context.Context, _ *entity.ChartDescriptor) (*entity.RenderedChart, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &entity.RenderedChart{ImageBase64: "aW1hZ2U=", ContentType: "image/png"}, nil
}

type testEnv struct {
	uc       *ChatUsecase
	messages *fakeMessageRepo
	datasets *fakeDatasetRepo
	renderer *fakeRenderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		messages: &fakeMessageRepo{},
		datasets: &fakeDatasetRepo{},
		renderer: &fakeRenderer{},
	}
	env.uc = NewUsecase(
		session.NewStore(time.Hour, time.Hour),
		dataset.NewLoader(),
		classifier.New(),
		aggregate.NewEngine(),
		compose.NewComposer(),
		validator.NewFileValidator(config.FileUploadConfig{MaxFileSize: 10 << 20, MaxUploadSize: 16 << 20}),
		env.messages,
		env.datasets,
		env.renderer,
		entity.ColumnMapping{
			Identifier: "Part Name",
			Date:       "Date",
			Inspected:  "Inspected Qty.",
			Rejected:   "Total Rej Qty.",
		},
		zap.NewNop(),
	)
	return env
}

func (env *testEnv) startSessionWithDataset(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	info, err := env.uc.StartSession(ctx)
	require.NoError(t, err)

	_, err = env.uc.UploadDatasetStream(ctx, info.ID, "register.csv",
		int64(len(fixtureCSV)), strings.NewReader(fixtureCSV))
	require.NoError(t, err)

	return info.ID
}

func TestHandleTurnWithoutDataset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	info, err := env.uc.StartSession(ctx)
	require.NoError(t, err)

	reply, err := env.uc.HandleTurn(ctx, info.ID, &entity.TurnRequest{Text: "what are the top defects"})
	require.NoError(t, err)
	assert.Equal(t, noDatasetText, reply.Text)
	assert.Nil(t, reply.Chart)

	// Both sides of the exchange end up in the transcript.
	msgs, err := env.messages.ListMessages(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleUser, msgs[0].Role)
	assert.Equal(t, entity.RoleAssistant, msgs[1].Role)
}

func TestHandleTurnUnknownSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.uc.HandleTurn(context.Background(), "missing", &entity.TurnRequest{Text: "top defects"})
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestHandleTurnEmptyText(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	info, err := env.uc.StartSession(ctx)
	require.NoError(t, err)

	_, err = env.uc.HandleTurn(ctx, info.ID, &entity.TurnRequest{Text: "   "})
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestUploadDatasetAndRank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	reply, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "what are the top 5 defects"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Burr")
	assert.Contains(t, reply.Text, "Damage")
	assert.Nil(t, reply.Chart)

	// Successful aggregation records the intent in context.
	sess, err := env.uc.store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.IntentRankTopN, sess.Context().LastIntent)

	require.Len(t, env.datasets.created, 1)
	assert.Equal(t, "register.csv", env.datasets.created[0].Filename)
	assert.Equal(t, 4, env.datasets.created[0].Rows)
}

func TestUploadDatasetBadExtension(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	info, err := env.uc.StartSession(ctx)
	require.NoError(t, err)

	_, err = env.uc.UploadDatasetStream(ctx, info.ID, "register.pdf",
		int64(len(fixtureCSV)), strings.NewReader(fixtureCSV))
	assert.ErrorIs(t, err, entity.ErrInvalidExtension)
}

func TestUploadDatasetAuditFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.datasets.createErr = errors.New("db down")
	ctx := context.Background()

	info, err := env.uc.StartSession(ctx)
	require.NoError(t, err)

	uploaded, err := env.uc.UploadDatasetStream(ctx, info.ID, "register.csv",
		int64(len(fixtureCSV)), strings.NewReader(fixtureCSV))
	require.NoError(t, err)
	assert.Equal(t, "register.csv", uploaded.DatasetName)
	assert.Equal(t, 4, uploaded.DatasetRows)
}

func TestBackReferenceResolvesFromContext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	reply, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "why so many rejections for PART-101"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "PART-101")

	reply, err = env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "what percentage of it is rejected"})
	require.NoError(t, err)
	assert.NotEqual(t, ambiguousReferenceText, reply.Text)
	assert.Contains(t, reply.Text, "%")
}

func TestBackReferenceWithoutContext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	reply, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "why does it get rejected"})
	require.NoError(t, err)
	assert.Equal(t, ambiguousReferenceText, reply.Text)

	// A failed turn must not pollute the context.
	sess, err := env.uc.store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationContext{}, sess.Context())
}

func TestUnknownEntityGetsSuggestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	reply, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "why so many rejections for bearing housng"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "couldn't find")
	assert.Contains(t, reply.Text, "Did you mean")
	assert.Contains(t, reply.Text, "Bearing Housing")

	sess, err := env.uc.store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationContext{}, sess.Context())
}

func TestChartRequestRendersImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	reply, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "draw a pie chart for defects"})
	require.NoError(t, err)
	require.NotNil(t, reply.Chart)
	assert.Equal(t, entity.ChartPie, reply.Chart.Kind)
	require.NotNil(t, reply.Image)
	assert.Equal(t, "aW1hZ2U=", reply.Image.ImageBase64)
	assert.Equal(t, 1, env.renderer.calls)
}

func TestChartRenderFailureKeepsDescriptor(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.err = errors.New("render service down")
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	reply, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "draw a pie chart for defects"})
	require.NoError(t, err)
	assert.NotNil(t, reply.Chart)
	assert.Nil(t, reply.Image)
}

func TestHandleTurnMessagePersistFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	env.messages.createErr = errors.New("db down")

	_, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "top defects"})
	assert.Error(t, err)
}

func TestResetSessionKeepsDataset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	_, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "why so many rejections for PART-101"})
	require.NoError(t, err)

	require.NoError(t, env.uc.ResetSession(ctx, sessionID))

	sess, err := env.uc.store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.ConversationContext{}, sess.Context())
	assert.NotNil(t, sess.Dataset())
}

func TestGetSessionReturnsTranscript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	_, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "what are the top defects"})
	require.NoError(t, err)

	info, msgs, err := env.uc.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "register.csv", info.DatasetName)
	require.Len(t, msgs, 2)
	assert.Equal(t, "what are the top defects", msgs[0].Text)
}

func TestExportReportMarkdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	_, err := env.uc.HandleTurn(ctx, sessionID, &entity.TurnRequest{Text: "what are the top defects"})
	require.NoError(t, err)

	content, contentType, filename, err := env.uc.ExportReport(ctx, sessionID, entity.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "text/markdown; charset=utf-8", contentType)
	assert.Equal(t, "qc-report-"+sessionID[:8]+".md", filename)

	text := string(content)
	assert.Contains(t, text, "Q: what are the top defects")
	assert.Contains(t, text, "Dataset: register.csv (4 rows)")
}

func TestExportReportInvalidFormat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessionID := env.startSessionWithDataset(t)

	_, _, _, err := env.uc.ExportReport(ctx, sessionID, entity.ResultFormat("xml"))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}
