package session

import (
	"context"
	"sync"
	"testing"

	"github.com/kzxian1201/medical-tourism-planning-system/models"
)

func TestEnsureCreatesOnce(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rec, created, err := store.Ensure(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !created {
		t.Fatal("first Ensure should create the session")
	}
	if rec.State.CurrentStage != models.StageInitialWelcome {
		t.Fatalf("stage = %s, want initial_welcome", rec.State.CurrentStage)
	}

	_, created, err = store.Ensure(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if created {
		t.Fatal("second Ensure must not re-create")
	}
}

func TestEnsureMintsID(t *testing.T) {
	store := NewInMemoryStore()
	rec, created, err := store.Ensure(context.Background(), "")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !created || rec.ID == "" {
		t.Fatalf("created=%v id=%q, want minted id", created, rec.ID)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store := NewInMemoryStore()
	if _, err := store.Get(context.Background(), "never-seen"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveDoesNotAliasCaller(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rec, _, _ := store.Ensure(ctx, "sess-1")
	rec.State.PlanParameters["departure_city"] = "Beijing"
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec.State.PlanParameters["departure_city"] = "Shanghai"

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State.PlanParameters["departure_city"] != "Beijing" {
		t.Fatal("stored state must not alias the caller's map")
	}
}

func TestWithLockSerializesPerSession(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	store.Ensure(ctx, "sess-1")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithLock(ctx, "sess-1", func(ctx context.Context) error {
				rec, err := store.Get(ctx, "sess-1")
				if err != nil {
					return err
				}
				rec.History = append(rec.History, models.Turn{Role: models.RoleUser, Content: "hi"})
				return store.Save(ctx, rec)
			})
			if err != nil {
				t.Errorf("WithLock: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(rec.History) != n {
		t.Fatalf("history length = %d, want %d (lost updates)", len(rec.History), n)
	}
}
