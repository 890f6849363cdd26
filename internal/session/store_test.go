package session

import (
	"testing"
	"time"

	"github.com/qualichat/qc-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)

	created := store.Create()
	require.NotEmpty(t, created.ID)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Same(t, created, got)
}

func TestStoreGetUnknownSession(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)

	_, err := store.Get("no-such-session")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(10*time.Millisecond, time.Minute)

	s := store.Create()
	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(s.ID)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)

	s := store.Create()
	store.Delete(s.ID)

	_, err := store.Get(s.ID)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestUpdateContextKeepsEntityAcrossIntents(t *testing.T) {
	s := &Session{ID: "s1", CreatedAt: time.Now()}

	s.UpdateContext(entity.Intent{Tag: entity.IntentEntityBreakdown, EntityName: "PART-101"})
	ctx := s.Context()
	assert.Equal(t, "PART-101", ctx.LastEntity)
	assert.Equal(t, entity.IntentEntityBreakdown, ctx.LastIntent)

	// A follow-up without an entity updates the intent only.
	s.UpdateContext(entity.Intent{Tag: entity.IntentRankTopN})
	ctx = s.Context()
	assert.Equal(t, "PART-101", ctx.LastEntity)
	assert.Equal(t, entity.IntentRankTopN, ctx.LastIntent)
}

func TestSwapDatasetClearsContext(t *testing.T) {
	s := &Session{ID: "s1", CreatedAt: time.Now()}
	s.UpdateContext(entity.Intent{Tag: entity.IntentEntityReason, EntityName: "PART-101"})

	ds := &Dataset{
		Meta:     entity.DatasetMeta{Filename: "register.xlsx", Rows: 42},
		Entities: []string{"PART-101", "PART-202"},
	}
	s.SwapDataset(ds)

	assert.Same(t, ds, s.Dataset())
	assert.Equal(t, entity.ConversationContext{}, s.Context())
}

func TestInfoBeforeAndAfterUpload(t *testing.T) {
	s := &Session{ID: "s1", CreatedAt: time.Now()}

	info := s.Info()
	assert.Equal(t, "s1", info.ID)
	assert.Empty(t, info.DatasetName)
	assert.Zero(t, info.DatasetRows)

	s.SwapDataset(&Dataset{
		Meta:     entity.DatasetMeta{Filename: "register.xlsx", Rows: 42},
		Entities: []string{"PART-101"},
	})

	info = s.Info()
	assert.Equal(t, "register.xlsx", info.DatasetName)
	assert.Equal(t, 42, info.DatasetRows)
	assert.Equal(t, []string{"PART-101"}, info.Entities)
}
