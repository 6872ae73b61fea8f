package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/visited-regions-backend/internal/logger"
	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

func TestVisitHubFanOut(t *testing.T) {
	hub := NewVisitHub()
	alice, bob := uuid.New(), uuid.New()

	tab1, stop1 := hub.Subscribe(alice)
	tab2, stop2 := hub.Subscribe(alice)
	other, stop3 := hub.Subscribe(bob)
	defer stop2()
	defer stop3()

	events := NewVisitEvents(nil, hub, logger.Nop())
	if err := events.PublishVisitsChanged(context.Background(), alice, models.ReconcileResult{Added: 2}); err != nil {
		t.Fatal(err)
	}

	for i, ch := range []<-chan VisitEvent{tab1, tab2} {
		select {
		case evt := <-ch:
			if evt.Type != EventTypeVisitsChanged || evt.Added != 2 || evt.UserID != alice.String() {
				t.Errorf("tab %d got %+v", i+1, evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("tab %d got no event", i+1)
		}
	}
	select {
	case evt := <-other:
		t.Errorf("other user received %+v", evt)
	default:
	}

	stop1()
	stop1()
	if _, open := <-tab1; open {
		t.Error("channel still open after unsubscribe")
	}
}

func TestVisitHubDropsWhenFull(t *testing.T) {
	hub := NewVisitHub()
	id := uuid.New()
	ch, stop := hub.Subscribe(id)
	defer stop()

	for i := 0; i < 20; i++ {
		hub.FanOut(VisitEvent{UserID: id.String(), Added: i})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d events, want %d", len(ch), cap(ch))
	}
}
