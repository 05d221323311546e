package postgres

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
)

func sampleOrder(t *testing.T, ownerID int64, now time.Time) domain.Order {
	t.Helper()

	productA, productB := int64(1), int64(2)
	qtyA, qtyB := int64(2), int64(1)
	priceA, priceB := decimal.RequireFromString("10.50"), decimal.RequireFromString("4.00")
	note := "leave at the door"

	order, err := domain.NewOrder(ownerID, []domain.CandidateItem{
		{ProductID: &productA, Quantity: &qtyA, Price: &priceA},
		{ProductID: &productB, Quantity: &qtyB, Price: &priceB},
	}, &note, now)
	if err != nil {
		t.Fatalf("build sample order: %v", err)
	}
	return order
}

func TestOrderRepository_PostgresInsertGetList(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOrderRepository(store)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first, err := repo.Insert(sampleOrder(t, 7, now))
	if err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second, err := repo.Insert(sampleOrder(t, 8, now))
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}
	third, err := repo.Insert(sampleOrder(t, 7, now))
	if err != nil {
		t.Fatalf("insert third: %v", err)
	}
	if first.ID != 1 || second.ID != 2 || third.ID != 3 {
		t.Fatalf("expected sequential ids, got %d %d %d", first.ID, second.ID, third.ID)
	}

	got, err := repo.Get(first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalAmount.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("unexpected total: %s", got.TotalAmount)
	}
	if len(got.Items) != 2 || got.Items[0].ProductID != 1 || got.Items[1].ProductID != 2 {
		t.Fatalf("items lost their order: %+v", got.Items)
	}
	if got.Note == nil || *got.Note != "leave at the door" {
		t.Fatalf("note not persisted: %v", got.Note)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: %s vs %s", got.CreatedAt, now)
	}

	mine, err := repo.ListByOwner(7)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != first.ID || mine[1].ID != third.ID {
		t.Fatalf("unexpected owner list: %+v", mine)
	}

	all, err := repo.ListAll()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(all))
	}

	if _, err := repo.Get(404); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_PostgresFourDecimalPrices(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOrderRepository(store)
	now := time.Now().UTC().Truncate(time.Microsecond)

	productA, productB := int64(1), int64(2)
	qtyA, qtyB := int64(3), int64(2)
	priceA, priceB := decimal.RequireFromString("0.0005"), decimal.RequireFromString("9999999999.9999")
	order, err := domain.NewOrder(7, []domain.CandidateItem{
		{ProductID: &productA, Quantity: &qtyA, Price: &priceA},
		{ProductID: &productB, Quantity: &qtyB, Price: &priceB},
	}, nil, now)
	if err != nil {
		t.Fatalf("build order: %v", err)
	}

	stored, err := repo.Insert(order)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := repo.Get(stored.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("total changed on round-trip: %s vs %s", got.TotalAmount, order.TotalAmount)
	}
	if !got.Items[0].UnitPrice.Equal(priceA) || !got.Items[1].UnitPrice.Equal(priceB) {
		t.Fatalf("prices changed on round-trip: %+v", got.Items)
	}
	if errs := got.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("stored order violates invariants: %v", errs)
	}
}

func TestOrderRepository_PostgresNumericOverflowIsValidation(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOrderRepository(store)
	now := time.Now().UTC().Truncate(time.Microsecond)

	huge := decimal.New(1, 17)
	_, err := repo.Insert(domain.Order{
		OwnerID:     7,
		Items:       []domain.OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: huge}},
		TotalAmount: huge,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if all, _ := repo.ListAll(); len(all) != 0 {
		t.Fatalf("overflowing order must not be stored: %+v", all)
	}
}

func TestOrderRepository_PostgresUpdate(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOrderRepository(store)
	now := time.Now().UTC().Truncate(time.Microsecond)

	stored, err := repo.Insert(sampleOrder(t, 7, now))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := repo.Update(stored.ID, func(o *domain.Order) error {
		return o.SetStatus(domain.OrderStatusShipped, now.Add(time.Second))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != domain.OrderStatusShipped || len(updated.Items) != 2 {
		t.Fatalf("unexpected updated order: %+v", updated)
	}

	reloaded, err := repo.Get(stored.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != domain.OrderStatusShipped || !reloaded.UpdatedAt.After(reloaded.CreatedAt) {
		t.Fatalf("update not persisted: %+v", reloaded)
	}

	_, err = repo.Update(stored.ID, func(o *domain.Order) error {
		return o.Cancel(now.Add(2 * time.Second))
	})
	if !errors.Is(err, domain.ErrCancelNotAllowed) {
		t.Fatalf("expected ErrCancelNotAllowed, got %v", err)
	}
	reloaded, _ = repo.Get(stored.ID)
	if reloaded.Status != domain.OrderStatusShipped {
		t.Fatalf("rejected update must roll back, got %s", reloaded.Status)
	}

	_, err = repo.Update(404, func(*domain.Order) error { return nil })
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_PostgresConcurrentCancel(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOrderRepository(store)
	now := time.Now().UTC().Truncate(time.Microsecond)

	stored, err := repo.Insert(sampleOrder(t, 7, now))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	const workers = 8
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
		t.Fatalf("expected exactly one cancel to win, got %d", successes)
	}
}
