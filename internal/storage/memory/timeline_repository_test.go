package memory

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

func TestTimelineRepository_ListIsChronological(t *testing.T) {
	repo := NewTimelineRepository()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	events := []domain.TimelineEvent{
		{OrderID: 1, Type: domain.TimelineOrderCancelled, Occurred: base.Add(2 * time.Second)},
		{OrderID: 1, Type: domain.TimelineOrderCreated, Occurred: base},
		{OrderID: 2, Type: domain.TimelineOrderCreated, Occurred: base},
		{OrderID: 1, Type: domain.TimelineOrderStatusChanged, Occurred: base.Add(time.Second)},
	}
	for _, event := range events {
		if err := repo.Append(event); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	got, err := repo.List(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{domain.TimelineOrderCreated, domain.TimelineOrderStatusChanged, domain.TimelineOrderCancelled}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, event := range got {
		if event.Type != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], event.Type)
		}
	}

	empty, err := repo.List(404)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no events, got %v, %v", empty, err)
	}
}
