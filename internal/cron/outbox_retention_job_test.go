package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/db/dbtest"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/enums"
	"github.com/kaokai/furniture-backend/pkg/outbox"
)

func TestOutboxRetentionDeletesOnlyOldPublishedRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	rows := []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "a", Payload: []byte(`{}`), PublishedAt: &old},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "b", Payload: []byte(`{}`), PublishedAt: &recent},
		{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: "c", Payload: []byte(`{}`)},
	}
	require.NoError(t, conn.Create(&rows).Error)

	job, err := NewOutboxRetentionJob(testLogger(), outbox.NewRepository(conn), 0)
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var left []models.OutboxEvent
	require.NoError(t, conn.Order("aggregate_id").Find(&left).Error)
	require.Len(t, left, 2)
	require.Equal(t, "b", left[0].AggregateID)
	require.Equal(t, "c", left[1].AggregateID)
}
