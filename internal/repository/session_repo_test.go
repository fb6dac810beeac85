package repository

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"convo-proxy/internal/domain"
)

func TestMemorySessionRepository_HistoryKeepsInsertionOrder(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	id := repo.CreateSession()

	want := []struct {
		role    domain.Role
		content string
	}{
		{domain.RoleUser, "hola"},
		{domain.RoleAssistant, "que tal"},
		{domain.RoleUser, "bien"},
		{domain.RoleAssistant, "me alegro"},
	}
	for _, m := range want {
		repo.AddMessage(id, m.role, m.content)
	}

	got := repo.History(id)
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Role != want[i].role || got[i].Content != want[i].content {
			t.Fatalf("message %d mismatch: got %+v", i, got[i])
		}
		if got[i].Timestamp.IsZero() {
			t.Fatalf("message %d has no timestamp", i)
		}
	}
}

func TestMemorySessionRepository_UnknownSessionIsEmpty(t *testing.T) {
	repo := NewMemorySessionRepository(nil)

	history := repo.History("missing")
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %+v", history)
	}

	repo.AddMessage("missing", domain.RoleUser, "hola")
	history = repo.History("missing")
	if len(history) != 1 || history[0].Content != "hola" {
		t.Fatalf("expected implicit session creation, got %+v", history)
	}
}

func TestMemorySessionRepository_HistoryIsDefensiveCopy(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	id := repo.CreateSession()
	repo.AddMessage(id, domain.RoleUser, "original")

	history := repo.History(id)
	history[0].Content = "mutated"
	_ = append(history, domain.Message{Role: domain.RoleUser, Content: "extra"})

	again := repo.History(id)
	if len(again) != 1 || again[0].Content != "original" {
		t.Fatalf("internal state leaked through History: %+v", again)
	}

	all := repo.AllSessions()
	all[id][0].Content = "mutated"
	if repo.History(id)[0].Content != "original" {
		t.Fatalf("internal state leaked through AllSessions")
	}
}

func TestMemorySessionRepository_ClearSession(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	id := repo.CreateSession()
	repo.AddMessage(id, domain.RoleUser, "hola")

	repo.ClearSession(id)
	if got := repo.History(id); len(got) != 0 {
		t.Fatalf("expected cleared history, got %+v", got)
	}
	if repo.Count() != 1 {
		t.Fatalf("clear must keep the session registered")
	}

	repo.ClearSession("missing")
	if repo.Count() != 1 {
		t.Fatalf("clearing an unknown session must be a no-op")
	}
}

func TestMemorySessionRepository_CreateSessionRetriesOnCollision(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	ids := []string{"dup", "dup", "fresh"}
	repo.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := repo.CreateSession()
	second := repo.CreateSession()
	if first != "dup" || second != "fresh" {
		t.Fatalf("expected dup then fresh, got %q and %q", first, second)
	}
}

func TestMemorySessionRepository_CreateSessionUnique(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	seen := make(map[string]struct{})
	for i := 0; i < 10_000; i++ {
		id := repo.CreateSession()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %q after %d sessions", id, i)
		}
		seen[id] = struct{}{}
	}
	if repo.Count() != 10_000 {
		t.Fatalf("expected 10000 sessions, got %d", repo.Count())
	}
}

func TestSessionIDGenerator_NoCollisions(t *testing.T) {
	n := 1_000_000
	if testing.Short() {
		n = 10_000
	}
	seen := make(map[uuid.UUID]struct{}, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		if _, dup := seen[id]; dup {
			t.Fatalf("collision after %d ids", i)
		}
		seen[id] = struct{}{}
	}
}

func TestMemorySessionRepository_ConcurrentAppendsAreNotLost(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	id := repo.CreateSession()

	const workers, perWorker = 20, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				repo.AddMessage(id, domain.RoleUser, fmt.Sprintf("%d-%d", w, i))
				_ = repo.History(id)
			}
		}(w)
	}
	wg.Wait()

	if got := len(repo.History(id)); got != workers*perWorker {
		t.Fatalf("expected %d messages, got %d", workers*perWorker, got)
	}
}
