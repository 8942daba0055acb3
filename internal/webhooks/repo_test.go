package webhooks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lamsahq/lamsa-backend/pkg/db"
	"github.com/lamsahq/lamsa-backend/pkg/db/models"
	"github.com/lamsahq/lamsa-backend/pkg/enums"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  event_id TEXT NOT NULL,
  event_type TEXT,
  payload TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INTEGER NOT NULL DEFAULT 0,
  error TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_webhook_events_provider_event_id
  ON webhook_events (provider, event_id);`
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

func TestRepository_InsertEnforcesDedupIndex(t *testing.T) {
	conn := setupWebhookTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	event := &models.WebhookEvent{
		Provider:  enums.WebhookProviderMoyasar,
		EventID:   "evt_01",
		EventType: "payment_paid",
		Status:    enums.WebhookEventStatusProcessing,
	}
	require.NoError(t, repo.Insert(ctx, event))

	dup := &models.WebhookEvent{
		Provider: enums.WebhookProviderMoyasar,
		EventID:  "evt_01",
		Status:   enums.WebhookEventStatusProcessing,
	}
	err := repo.Insert(ctx, dup)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))

	// Same event id under another provider is a distinct event.
	other := &models.WebhookEvent{
		Provider: enums.WebhookProviderTabby,
		EventID:  "evt_01",
		Status:   enums.WebhookEventStatusProcessing,
	}
	assert.NoError(t, repo.Insert(ctx, other))
}

func TestRepository_StatusTransitions(t *testing.T) {
	conn := setupWebhookTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	event := &models.WebhookEvent{
		Provider: enums.WebhookProviderMoyasar,
		EventID:  "evt_02",
		Status:   enums.WebhookEventStatusProcessing,
	}
	require.NoError(t, repo.Insert(ctx, event))

	require.NoError(t, repo.MarkFailed(ctx, event.ID, "no payment for gateway reference"))
	found, err := repo.FindByProviderEvent(ctx, enums.WebhookProviderMoyasar, "evt_02")
	require.NoError(t, err)
	assert.Equal(t, enums.WebhookEventStatusFailed, found.Status)
	assert.Equal(t, 1, found.Attempts)
	require.NotNil(t, found.Error)

	require.NoError(t, repo.MarkProcessing(ctx, event.ID))
	require.NoError(t, repo.MarkProcessed(ctx, event.ID))
	found, err = repo.FindByProviderEvent(ctx, enums.WebhookProviderMoyasar, "evt_02")
	require.NoError(t, err)
	assert.Equal(t, enums.WebhookEventStatusProcessed, found.Status)
	assert.Equal(t, 2, found.Attempts)
	assert.Nil(t, found.Error)
}

func TestRepository_ListFailed(t *testing.T) {
	conn := setupWebhookTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	for i, status := range []enums.WebhookEventStatus{
		enums.WebhookEventStatusProcessed,
		enums.WebhookEventStatusFailed,
		enums.WebhookEventStatusFailed,
	} {
		event := &models.WebhookEvent{
			ID:       uuid.New(),
			Provider: enums.WebhookProviderMoyasar,
			EventID:  "evt_list_" + string(rune('a'+i)),
			Status:   status,
		}
		require.NoError(t, repo.Insert(ctx, event))
	}

	failed, err := repo.ListFailed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 2)
	for _, event := range failed {
		assert.Equal(t, enums.WebhookEventStatusFailed, event.Status)
	}
}
