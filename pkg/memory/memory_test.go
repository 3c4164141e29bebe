package memory_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
)

func TestStartNewSessionReplacesPrevious(t *testing.T) {
	store := memory.New(time.Hour)
	mem := store.Acquire("user-1")
	defer mem.Release()

	gt.False(t, mem.HasActiveSession())

	mem.StartNewSession("Pixel 9", model.CategoryProduct, "pixel context")
	gt.NoError(t, mem.AddConversation("battery?", "a full day"))
	mem.StartNewSession("iPhone 16", model.CategoryProduct, "iphone context")

	gt.True(t, mem.HasActiveSession())
	ssn := mem.Snapshot()
	gt.Equal(t, ssn.Subject, "iPhone 16")
	gt.Equal(t, ssn.RawContext, "iphone context")
	gt.A(t, ssn.ExchangeLog).Length(0)
	gt.S(t, mem.GetResearchContext()).NotContains("pixel")
}

func TestAddConversation(t *testing.T) {
	store := memory.New(time.Hour)
	mem := store.Acquire("user-1")
	defer mem.Release()

	err := mem.AddConversation("q", "a")
	gt.True(t, errors.Is(err, memory.ErrNoSession))

	mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw data")
	gt.NoError(t, mem.AddConversation("what about the camera", "it is great"))
	gt.NoError(t, mem.AddConversation("and battery", "a full day"))

	ssn := mem.Snapshot()
	gt.A(t, ssn.ExchangeLog).Length(2)
	gt.Equal(t, ssn.ExchangeLog[0].Question, "what about the camera")

	ctx := mem.GetResearchContext()
	gt.S(t, ctx).Contains("Research subject: Pixel 9")
	gt.S(t, ctx).Contains("raw data")
	gt.S(t, ctx).Contains("Q: and battery")
	gt.S(t, ctx).Contains("A: a full day")
}

func TestSnapshotIsACopy(t *testing.T) {
	store := memory.New(time.Hour)
	mem := store.Acquire("user-1")
	defer mem.Release()

	mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw")
	snap := mem.Snapshot()
	gt.NoError(t, mem.AddConversation("q", "a"))
	gt.A(t, snap.ExchangeLog).Length(0)
}

func TestClearSession(t *testing.T) {
	store := memory.New(time.Hour)
	mem := store.Acquire("user-1")
	mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw")
	mem.ClearSession()
	gt.False(t, mem.HasActiveSession())
	gt.Equal(t, mem.GetResearchContext(), "")
	gt.Nil(t, mem.Snapshot())
	mem.Release()
}

func TestSessionsAreIsolatedPerID(t *testing.T) {
	store := memory.New(time.Hour)

	a := store.Acquire("alice")
	a.StartNewSession("Pixel 9", model.CategoryProduct, "alice data")
	a.Release()

	b := store.Acquire("bob")
	gt.False(t, b.HasActiveSession())
	b.Release()

	st := store.Status("alice")
	gt.True(t, st.Active)
	gt.Equal(t, st.Subject, "Pixel 9")
	gt.Equal(t, st.String(), "Active session: Pixel 9 (0 exchanges)")

	store.Clear("alice")
	gt.False(t, store.Status("alice").Active)
	gt.Equal(t, store.Status("alice").String(), "No active session")
}

func TestEmptyIDUsesDefault(t *testing.T) {
	store := memory.New(time.Hour)
	mem := store.Acquire("")
	gt.Equal(t, mem.ID(), model.DefaultSessionID)
	mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw")
	mem.Release()

	gt.True(t, store.Status(model.DefaultSessionID).Active)
}

func TestSessionExpires(t *testing.T) {
	store := memory.New(50 * time.Millisecond)

	mem := store.Acquire("user-1")
	mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw")
	mem.Release()

	time.Sleep(150 * time.Millisecond)
	gt.False(t, store.Status("user-1").Active)
}

func TestReleaseTwiceIsSafe(t *testing.T) {
	store := memory.New(time.Hour)
	mem := store.Acquire("user-1")
	mem.Release()
	mem.Release()

	// the slot must be acquirable again
	again := store.Acquire("user-1")
	again.Release()
}

func TestAcquireSerializesSameID(t *testing.T) {
	store := memory.New(time.Hour)

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mem := store.Acquire("shared")
			defer mem.Release()

			if !mem.HasActiveSession() {
				mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw")
			}
			// unsynchronized read-modify-write would lose exchanges
			_ = mem.AddConversation("q", "a")
		}()
	}
	wg.Wait()

	gt.Equal(t, store.Status("shared").Exchanges, workers)
}

func TestHeldSlotOutlivesTTL(t *testing.T) {
	store := memory.New(50 * time.Millisecond)

	first := store.Acquire("u")
	first.StartNewSession("Pixel 9", model.CategoryProduct, "pixel context")

	acquired := make(chan bool, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		second := store.Acquire("u")
		defer second.Release()
		acquired <- second.HasActiveSession()
		second.StartNewSession("iPhone 16", model.CategoryProduct, "iphone context")
	}()

	// longer than the TTL while the slot is held
	time.Sleep(150 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("second caller entered the slot while it was held")
	default:
	}
	gt.Equal(t, store.Len(), 1)
	first.Release()

	gt.True(t, <-acquired)
	<-done

	status := store.Status("u")
	gt.True(t, status.Active)
	gt.Equal(t, status.Subject, "iPhone 16")
}

func TestIdleSlotIsEvicted(t *testing.T) {
	store := memory.New(30 * time.Millisecond)

	mem := store.Acquire("user-1")
	mem.StartNewSession("Pixel 9", model.CategoryProduct, "raw")
	mem.Release()
	gt.Equal(t, store.Len(), 1)

	time.Sleep(200 * time.Millisecond)
	gt.Equal(t, store.Len(), 0)
}
