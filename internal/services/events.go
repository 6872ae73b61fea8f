package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

const (
	EventTypeVisitsChanged = "visits_changed"

	visitChannelPrefix  = "visits:user:"
	visitChannelPattern = visitChannelPrefix + "*"
)

// VisitEvent is broadcast over Redis and pushed to the user's open WebSockets.
type VisitEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
	Timestamp time.Time `json:"timestamp"`
}

// VisitHub fans events out to the local subscribers of each user.
type VisitHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan VisitEvent]struct{}
}

func NewVisitHub() *VisitHub {
	return &VisitHub{subs: make(map[string]map[chan VisitEvent]struct{})}
}

// Subscribe registers a listener for one user. The returned func must be
// called to release it.
func (h *VisitHub) Subscribe(userID uuid.UUID) (<-chan VisitEvent, func()) {
	key := userID.String()
	ch := make(chan VisitEvent, 8)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan VisitEvent]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], ch)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// FanOut delivers event to local subscribers. Slow subscribers miss events
// rather than block the publisher.
func (h *VisitHub) FanOut(event VisitEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.UserID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// VisitEvents publishes visit changes through Redis so every instance can
// notify its own WebSocket clients. Without Redis it fans out locally.
type VisitEvents struct {
	client *redis.Client
	hub    *VisitHub
	log    logger.Logger
	once   sync.Once
}

func NewVisitEvents(client *redis.Client, hub *VisitHub, log logger.Logger) *VisitEvents {
	return &VisitEvents{client: client, hub: hub, log: log}
}

func (e *VisitEvents) PublishVisitsChanged(ctx context.Context, userID uuid.UUID, result models.ReconcileResult) error {
	event := VisitEvent{
		Type:      EventTypeVisitsChanged,
		UserID:    userID.String(),
		Added:     result.Added,
		Removed:   result.Removed,
		Timestamp: time.Now().UTC(),
	}
	if e.client == nil {
		e.hub.FanOut(event)
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.client.Publish(ctx, visitChannelPrefix+event.UserID, data).Err()
}

// Start runs a single Redis subscriber per instance until ctx is done.
func (e *VisitEvents) Start(ctx context.Context) {
	if e.client == nil {
		return
	}
	e.once.Do(func() {
		go e.run(ctx)
	})
}

func (e *VisitEvents) run(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := e.client.PSubscribe(ctx, visitChannelPattern)
			defer pubsub.Close()

			e.log.Info("visit event subscriber started", logger.String("pattern", visitChannelPattern))

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					e.log.Warn("visit event subscriber error", logger.Error(err), logger.Duration("backoff", backoff))
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}
				backoff = time.Second

				var event VisitEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					e.log.Warn("failed to decode visit event", logger.Error(err))
					continue
				}
				e.hub.FanOut(event)
			}
		}()
	}
}
