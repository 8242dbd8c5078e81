package services

import (
	"context"
	"testing"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotHubDeliversToDoctorSubscribersOnly(t *testing.T) {
	hub := NewSlotHub()
	a := hub.Subscribe("docA")
	b := hub.Subscribe("docB")
	defer hub.Unsubscribe(b)

	hub.Broadcast(models.SlotEvent{Type: models.SlotEventBooked, DoctorID: "docA", SlotDate: "10_6_2025", SlotTime: "10:00"})

	select {
	case got := <-a.Events:
		assert.Equal(t, "10:00", got.SlotTime)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
	assert.Empty(t, b.Events)

	hub.Unsubscribe(a)
	assert.Equal(t, 0, hub.Subscribers("docA"))
	assert.Equal(t, 1, hub.Subscribers("docB"))
}

func TestSlotHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewSlotHub()
	sub := hub.Subscribe("docA")
	for i := 0; i < cap(sub.Events)+5; i++ {
		hub.Broadcast(models.SlotEvent{DoctorID: "docA"})
	}
	assert.Len(t, sub.Events, cap(sub.Events))
}

func TestSlotEventsWithoutRedisUseLocalHub(t *testing.T) {
	hub := NewSlotHub()
	sub := hub.Subscribe("docA")
	events := NewSlotEvents(nil, hub, NewDoctorCache(nil, 0), nil)

	err := events.PublishSlotEvent(context.Background(), models.SlotEvent{Type: models.SlotEventReleased, DoctorID: "docA"})
	require.NoError(t, err)

	got := <-sub.Events
	assert.Equal(t, models.SlotEventReleased, got.Type)
	assert.False(t, got.Timestamp.IsZero())
}

func TestDoctorCacheDisabledWithoutClient(t *testing.T) {
	cache := NewDoctorCache(nil, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []models.DoctorListing{{}}))
	_, ok := cache.Get(ctx)
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(ctx))
}
