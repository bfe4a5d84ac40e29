package account

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	created := time.UnixMilli(time.Now().UnixMilli())
	first := &User{Email: "First@Example.com", PasswordHash: "h1", Status: StatusPending, CreatedAt: created}
	second := &User{Email: "second@example.com", PasswordHash: "h2", Status: StatusAdmin, CreatedAt: created.Add(time.Second)}

	for _, u := range []*User{first, second} {
		if err := store.Save(ctx, u); err != nil {
			t.Fatalf("Save(%s): %v", u.Email, err)
		}
	}

	got, err := store.Get(ctx, "first@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "first@example.com" || got.PasswordHash != "h1" || got.Status != StatusPending || got.ApprovedAt != nil {
		t.Errorf("Get = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	dup := &User{Email: "FIRST@example.com", PasswordHash: "other", Status: StatusAdmin, CreatedAt: created}
	if err := store.Create(ctx, dup); !errors.Is(err, ErrExists) {
		t.Errorf("Create duplicate err = %v, want ErrExists", err)
	}
	if got, _ := store.Get(ctx, "first@example.com"); got == nil || got.PasswordHash != "h1" {
		t.Errorf("duplicate Create overwrote the record: %+v", got)
	}
	if err := store.Create(ctx, &User{Email: "third@example.com", PasswordHash: "h3", Status: StatusPending, CreatedAt: created.Add(2 * time.Second)}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(ctx, "third@example.com"); err != nil {
		t.Fatalf("Delete third: %v", err)
	}

	approved := created.Add(time.Hour)
	got.Status = StatusApproved
	got.ApprovedAt = &approved
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save update: %v", err)
	}
	got, err = store.Get(ctx, "FIRST@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusApproved || got.ApprovedAt == nil || !got.ApprovedAt.Equal(approved) {
		t.Errorf("after update = %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Email != "first@example.com" || list[1].Email != "second@example.com" {
		t.Errorf("List = %+v", list)
	}

	if err := store.Delete(ctx, "first@example.com"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "first@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get deleted err = %v", err)
	}
	if err := store.Delete(ctx, "first@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	store, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	testStore(t, store)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, &User{Email: "keep@example.com", PasswordHash: "h", Status: StatusApproved, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, "keep@example.com"); err != nil {
		t.Errorf("record lost after reopen: %v", err)
	}
}

func TestConcurrentRegisterSameEmail(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store {
			store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "users.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewService(Options{Store: open(t)})

			const n = 8
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				winners []string
			)
			for i := 0; i < n; i++ {
				password := "secret" + string(rune('a'+i))
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Register(ctx, "kid@example.com", password)
					switch {
					case err == nil:
						mu.Lock()
						winners = append(winners, password)
						mu.Unlock()
					case !errors.Is(err, ErrExists):
						t.Errorf("Register: %v", err)
					}
				}()
			}
			wg.Wait()

			if len(winners) != 1 {
				t.Fatalf("successful registrations = %d, want 1", len(winners))
			}
			u, err := svc.Get(ctx, "kid@example.com")
			if err != nil {
				t.Fatal(err)
			}
			if !u.CheckPassword(winners[0]) {
				t.Error("stored password is not the winner's")
			}
		})
	}
}
