package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Helper function to create an in-memory store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return store
}

// fixClock pins the store clock and restores it when the test ends.
func fixClock(t *testing.T, ts time.Time) *time.Time {
	t.Helper()
	current := ts
	orig := now
	now = func() time.Time { return current }
	t.Cleanup(func() { now = orig })
	return &current
}

func TestNew(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store.db should not be nil")
	}
}

func TestCreateSchema(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	var name string
	err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='app_history'").Scan(&name)
	if err != nil {
		t.Errorf("Table app_history not found: %v", err)
	}

	indexes := []string{"idx_app_history_count", "idx_app_history_last"}
	for _, index := range indexes {
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		if err != nil {
			t.Errorf("Index %s not found: %v", index, err)
		}
	}

	// Idempotent
	if err := store.CreateSchema(); err != nil {
		t.Errorf("second CreateSchema() failed: %v", err)
	}
}

func TestListApps_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// No CreateSchema: the database is uninitialized.
	_, err = s.ListApps(0)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListApps() error = %v; want ErrNotInitialized", err)
	}

	err = s.IncrementAndUpdate("com.example.app", ".Main")
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("IncrementAndUpdate() error = %v; want ErrNotInitialized", err)
	}
}

func TestIncrementAndUpdate(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := fixClock(t, first)

	if err := store.IncrementAndUpdate("com.example.app", ".Main"); err != nil {
		t.Fatalf("IncrementAndUpdate() failed: %v", err)
	}

	*clock = first.Add(time.Hour)
	if err := store.IncrementAndUpdate("com.example.app", ".Settings"); err != nil {
		t.Fatalf("IncrementAndUpdate() failed: %v", err)
	}

	rec, err := store.GetApp("com.example.app")
	if err != nil {
		t.Fatalf("GetApp() failed: %v", err)
	}

	if rec.Count != 2 {
		t.Errorf("Count = %d, want 2", rec.Count)
	}
	if rec.ProcessName != ".Settings" {
		t.Errorf("ProcessName = %q, want .Settings", rec.ProcessName)
	}
	if !rec.FirstLaunched.Equal(first) {
		t.Errorf("FirstLaunched = %v, want %v", rec.FirstLaunched, first)
	}
	if !rec.LastLaunched.Equal(first.Add(time.Hour)) {
		t.Errorf("LastLaunched = %v, want %v", rec.LastLaunched, first.Add(time.Hour))
	}
}

func TestIncrementAndUpdate_EmptyPackage(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if err := store.IncrementAndUpdate("", ".Main"); err == nil {
		t.Error("IncrementAndUpdate(\"\") should fail")
	}
}

func TestGetApp_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetApp("com.missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetApp() error = %v, want ErrNotFound", err)
	}
}

func TestListApps(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := fixClock(t, base)

	launches := []string{"b.app", "a.app", "a.app", "c.app", "a.app", "b.app"}
	for i, pkg := range launches {
		*clock = base.Add(time.Duration(i) * time.Minute)
		if err := store.IncrementAndUpdate(pkg, ".Main"); err != nil {
			t.Fatalf("IncrementAndUpdate(%s) failed: %v", pkg, err)
		}
	}

	apps, err := store.ListApps(0)
	if err != nil {
		t.Fatalf("ListApps() failed: %v", err)
	}

	want := []struct {
		name  string
		count int64
	}{{"a.app", 3}, {"b.app", 2}, {"c.app", 1}}
	if len(apps) != len(want) {
		t.Fatalf("ListApps() returned %d apps, want %d", len(apps), len(want))
	}
	for i, w := range want {
		if apps[i].PackageName != w.name || apps[i].Count != w.count {
			t.Errorf("apps[%d] = %s/%d, want %s/%d", i, apps[i].PackageName, apps[i].Count, w.name, w.count)
		}
	}

	limited, err := store.ListApps(2)
	if err != nil {
		t.Fatalf("ListApps(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListApps(2) returned %d apps, want 2", len(limited))
	}

	total, err := store.TotalLaunches()
	if err != nil {
		t.Fatalf("TotalLaunches() failed: %v", err)
	}
	if total != int64(len(launches)) {
		t.Errorf("TotalLaunches() = %d, want %d", total, len(launches))
	}
}

func TestListApps_TiesOrderByRecency(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := fixClock(t, base)

	store.IncrementAndUpdate("older.app", ".Main")
	*clock = base.Add(500 * time.Millisecond)
	store.IncrementAndUpdate("newer.app", ".Main")

	apps, err := store.ListApps(0)
	if err != nil {
		t.Fatalf("ListApps() failed: %v", err)
	}
	if len(apps) != 2 || apps[0].PackageName != "newer.app" {
		t.Errorf("expected newer.app first, got %+v", apps)
	}
}

func TestDeleteApp(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if err := store.IncrementAndUpdate("com.example.app", ".Main"); err != nil {
		t.Fatalf("IncrementAndUpdate() failed: %v", err)
	}

	if err := store.DeleteApp("com.example.app"); err != nil {
		t.Fatalf("DeleteApp() failed: %v", err)
	}

	if _, err := store.GetApp("com.example.app"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetApp() after delete error = %v, want ErrNotFound", err)
	}

	if err := store.DeleteApp("com.example.app"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteApp() error = %v, want ErrNotFound", err)
	}
}

func TestIncrementAndUpdate_Concurrent(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := store.IncrementAndUpdate("com.example.app", ".Main"); err != nil {
					t.Errorf("IncrementAndUpdate() failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	rec, err := store.GetApp("com.example.app")
	if err != nil {
		t.Fatalf("GetApp() failed: %v", err)
	}
	if rec.Count != workers*perWorker {
		t.Errorf("Count = %d, want %d", rec.Count, workers*perWorker)
	}
}

// TestIncrementAndUpdate_ConcurrentHandles mirrors the watcher, which opens a
// fresh handle per log line: separate handles on one file must not lose updates.
func TestIncrementAndUpdate_ConcurrentHandles(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "apptracker.db")

	setup, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	setup.Close()

	const handles = 4
	const perHandle = 20

	var wg sync.WaitGroup
	for i := 0; i < handles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perHandle; j++ {
				st, err := New(dbPath)
				if err != nil {
					t.Errorf("New() failed: %v", err)
					return
				}
				if err := st.IncrementAndUpdate("com.example.app", ".Main"); err != nil {
					t.Errorf("IncrementAndUpdate() failed: %v", err)
				}
				st.Close()
			}
		}()
	}
	wg.Wait()

	st, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer st.Close()

	rec, err := st.GetApp("com.example.app")
	if err != nil {
		t.Fatalf("GetApp() failed: %v", err)
	}
	if rec.Count != handles*perHandle {
		t.Errorf("Count = %d, want %d", rec.Count, handles*perHandle)
	}
}
