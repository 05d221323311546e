package memory_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
	"github.com/vladislavdragonenkov/orderlife/internal/storage/memory"
)

func newOrder(ownerID int64) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		OwnerID:     ownerID,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(500),
		Items: []domain.OrderItem{
			{ProductID: 1, Quantity: 5, UnitPrice: decimal.NewFromInt(100)},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_InsertAssignsSequentialIDs(t *testing.T) {
	repo := memory.NewOrderRepository()

	for want := int64(1); want <= 3; want++ {
		stored, err := repo.Insert(newOrder(1))
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if stored.ID != want {
			t.Fatalf("expected id %d, got %d", want, stored.ID)
		}
	}
}

func TestOrderRepository_InsertGet(t *testing.T) {
	repo := memory.NewOrderRepository()

	stored, err := repo.Insert(newOrder(1))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := repo.Get(stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != stored.ID || got.OwnerID != 1 {
		t.Fatalf("unexpected order: %+v", got)
	}

	if _, err := repo.Get(42); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ReturnsCopies(t *testing.T) {
	repo := memory.NewOrderRepository()
	stored, err := repo.Insert(newOrder(1))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	stored.Items[0].Quantity = 999
	stored.Status = domain.OrderStatusDelivered

	got, err := repo.Get(stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Items[0].Quantity != 5 || got.Status != domain.OrderStatusPending {
		t.Fatalf("stored order was mutated through a returned copy: %+v", got)
	}
}

func TestOrderRepository_ListByOwnerPreservesOrder(t *testing.T) {
	repo := memory.NewOrderRepository()
	owners := []int64{1, 2, 1, 3, 1}
	for _, owner := range owners {
		if _, err := repo.Insert(newOrder(owner)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	mine, err := repo.ListByOwner(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	wantIDs := []int64{1, 3, 5}
	if len(mine) != len(wantIDs) {
		t.Fatalf("expected %d orders, got %d", len(wantIDs), len(mine))
	}
	for i, order := range mine {
		if order.ID != wantIDs[i] || order.OwnerID != 1 {
			t.Fatalf("position %d: got id=%d owner=%d", i, order.ID, order.OwnerID)
		}
	}

	none, err := repo.ListByOwner(404)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty list, got %v, %v", none, err)
	}

	all, err := repo.ListAll()
	if err != nil {
		t.Fatalf("list all failed: %v", err)
	}
	if len(all) != len(owners) {
		t.Fatalf("expected %d orders, got %d", len(owners), len(all))
	}
	for i, order := range all {
		if order.ID != int64(i+1) {
			t.Fatalf("list all out of order at %d: %d", i, order.ID)
		}
	}
}

func TestOrderRepository_Update(t *testing.T) {
	repo := memory.NewOrderRepository()
	stored, _ := repo.Insert(newOrder(1))

	updated, err := repo.Update(stored.ID, func(o *domain.Order) error {
		o.OwnerID = 77
		return o.SetStatus(domain.OrderStatusShipped, time.Now().UTC())
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Status != domain.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", updated.Status)
	}
	if updated.OwnerID != 1 {
		t.Fatalf("owner must be immutable, got %d", updated.OwnerID)
	}
}

func TestOrderRepository_UpdateRejectedLeavesOrderUntouched(t *testing.T) {
	repo := memory.NewOrderRepository()
	stored, _ := repo.Insert(newOrder(1))
	rejection := errors.New("nope")

	_, err := repo.Update(stored.ID, func(o *domain.Order) error {
		o.Status = domain.OrderStatusDelivered
		return rejection
	})
	if !errors.Is(err, rejection) {
		t.Fatalf("expected rejection error, got %v", err)
	}

	got, _ := repo.Get(stored.ID)
	if got.Status != domain.OrderStatusPending {
		t.Fatalf("rejected update must not be stored, got %s", got.Status)
	}

	_, err = repo.Update(999, func(*domain.Order) error { return nil })
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ConcurrentInsertsGetUniqueIDs(t *testing.T) {
	repo := memory.NewOrderRepository()
	const workers = 50

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{}, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			stored, err := repo.Insert(newOrder(owner))
			if err != nil {
				t.Errorf("insert failed: %v", err)
				return
			}
			mu.Lock()
			ids[stored.ID] = struct{}{}
			mu.Unlock()
		}(int64(i))
	}
	wg.Wait()

	if len(ids) != workers || repo.Len() != workers {
		t.Fatalf("expected %d unique ids, got %d (len=%d)", workers, len(ids), repo.Len())
	}
}

func TestOrderRepository_ConcurrentCancelOnlyOneWins(t *testing.T) {
	repo := memory.NewOrderRepository()
	stored, _ := repo.Insert(newOrder(1))

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(stored.ID, func(o *domain.Order) error {
				return o.Cancel(time.Now().UTC())
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful cancel, got %d", successes)
	}
}

func TestOrderRepository_Reset(t *testing.T) {
	repo := memory.NewOrderRepository()
	_, _ = repo.Insert(newOrder(1))
	_, _ = repo.Insert(newOrder(1))

	repo.Reset()

	if repo.Len() != 0 {
		t.Fatalf("expected empty repo after reset, got %d", repo.Len())
	}
	stored, _ := repo.Insert(newOrder(1))
	if stored.ID != 1 {
		t.Fatalf("expected ids to restart at 1, got %d", stored.ID)
	}
}
