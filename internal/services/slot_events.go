package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/prescripto-backend/internal/models"
	"github.com/AnshRaj112/prescripto-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const slotChannelPrefix = "slots:doctor:"

// SlotHub fans slot events out to the feed connections of this instance.
type SlotHub struct {
	mu   sync.RWMutex
	subs map[string]map[*SlotSubscription]struct{}
}

// SlotSubscription receives the events of one doctor.
type SlotSubscription struct {
	DoctorID string
	Events   chan models.SlotEvent
}

func NewSlotHub() *SlotHub {
	return &SlotHub{subs: make(map[string]map[*SlotSubscription]struct{})}
}

// Subscribe registers a listener for doctorID. Call Unsubscribe when done.
func (h *SlotHub) Subscribe(doctorID string) *SlotSubscription {
	sub := &SlotSubscription{DoctorID: doctorID, Events: make(chan models.SlotEvent, 16)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[doctorID] == nil {
		h.subs[doctorID] = make(map[*SlotSubscription]struct{})
	}
	h.subs[doctorID][sub] = struct{}{}
	return sub
}

func (h *SlotHub) Unsubscribe(sub *SlotSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.DoctorID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.DoctorID)
		}
	}
}

// Broadcast delivers event to every subscriber of its doctor. Slow
// subscribers miss events instead of stalling the publisher.
func (h *SlotHub) Broadcast(event models.SlotEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[event.DoctorID] {
		select {
		case sub.Events <- event:
		default:
		}
	}
}

// Subscribers returns the number of listeners for doctorID.
func (h *SlotHub) Subscribers(doctorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[doctorID])
}

// SlotEvents publishes slot changes. With Redis every instance receives
// them through the subscriber; without it events go straight to the local
// hub.
type SlotEvents struct {
	client redis.UniversalClient
	hub    *SlotHub
	cache  *DoctorCache
	log    *logger.Logger
}

func NewSlotEvents(client redis.UniversalClient, hub *SlotHub, cache *DoctorCache, log *logger.Logger) *SlotEvents {
	if log == nil {
		log = logger.Discard()
	}
	return &SlotEvents{client: client, hub: hub, cache: cache, log: log}
}

func (e *SlotEvents) PublishSlotEvent(ctx context.Context, event models.SlotEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.log.WithContext(ctx).WithError(err).Warn("Failed to invalidate doctor list cache")
	}

	if e.client == nil {
		if e.hub != nil {
			e.hub.Broadcast(event)
		}
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.client.Publish(ctx, slotChannelPrefix+event.DoctorID, data).Err()
}

// Run relays events from Redis into the local hub until ctx is done,
// resubscribing with backoff after errors.
func (e *SlotEvents) Run(ctx context.Context) {
	if e.client == nil || e.hub == nil {
		return
	}
	log := e.log.WithComponent("slot_events")
	backoff := time.Second

	for ctx.Err() == nil {
		pubsub := e.client.PSubscribe(ctx, slotChannelPrefix+"*")
		log.Info("Slot event subscriber started")

		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Warn("Slot event subscriber error")
				}
				break
			}
			backoff = time.Second

			var event models.SlotEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.WithError(err).Warn("Failed to decode slot event")
				continue
			}
			if event.DoctorID == "" {
				event.DoctorID = strings.TrimPrefix(msg.Channel, slotChannelPrefix)
			}
			e.hub.Broadcast(event)
		}
		pubsub.Close()

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}
