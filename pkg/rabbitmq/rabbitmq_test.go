package rabbitmq

import (
	"context"
	"testing"
	"time"

	"valuedrive/internal/models"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishingRoundTrip(t *testing.T) {
	ev := models.ListingEvent{
		Type:       models.EventListingDeleted,
		ListingID:  "abc",
		CarNumber:  "MH12",
		Cleanup:    []models.ImageCleanup{{Image: "a.jpg", Removed: false, Error: "gone"}},
		OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	msg, err := Publishing(ev)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, models.EventListingDeleted, msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	got, err := DecodeListingEvent(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = DecodeListingEvent([]byte("{"))
	assert.Error(t, err)
}

func TestLogListingEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := LogListingEvent(zap.New(core).Sugar())

	err := handler(context.Background(), models.ListingEvent{
		Type:    models.EventListingUpdated,
		Cleanup: []models.ImageCleanup{{Removed: true}, {Removed: false}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, 1, logs.All()[0].ContextMap()["cleanup_failed"])
}

func TestPublishWithoutChannel(t *testing.T) {
	var c *Client
	assert.Error(t, c.PublishListingEvent(context.Background(), models.ListingEvent{}))
}
