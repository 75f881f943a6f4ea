package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AlekSi/pointer"

	"github.com/starford/notestore/internal/localstore"
	"github.com/starford/notestore/internal/models"
	"github.com/starford/notestore/internal/testutil"
)

// drain collects the messages already queued on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

func countPrefix(msgs []string, event string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, "event: "+event+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "account.switched", Data: map[string]string{"name": "alice"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: account.switched") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"name":"alice"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestNotify_CountsThrottle(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(localstore.Event{Entity: localstore.EntityNote, Op: localstore.OpAdd, LocalID: "a"})
	b.Notify(localstore.Event{Entity: localstore.EntityNote, Op: localstore.OpUpdate, LocalID: "a"})
	b.Notify(localstore.Event{Entity: localstore.EntityNote, Op: localstore.OpExpunge, LocalID: "a"})

	msgs := drain(ch)
	if n := countPrefix(msgs, "note.add"); n != 1 {
		t.Errorf("note.add events = %d, want 1", n)
	}
	if n := countPrefix(msgs, "note.update"); n != 1 {
		t.Errorf("note.update events = %d, want 1", n)
	}
	if n := countPrefix(msgs, "note.expunge"); n != 1 {
		t.Errorf("note.expunge events = %d, want 1", n)
	}
	if n := countPrefix(msgs, CountsUpdated); n != 1 {
		t.Errorf("%s events = %d, want 1 (throttled)", CountsUpdated, n)
	}
}

func TestNotify_FromStore(t *testing.T) {
	b := NewBroker(time.Minute)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	db := testutil.TestDB(t, localstore.WithObserver(b))
	nb := &models.Notebook{Name: pointer.ToString("Inbox")}
	if err := db.AddNotebook(context.Background(), nb); err != nil {
		t.Fatalf("AddNotebook: %v", err)
	}
	// Failed mutations are not reported.
	_ = db.AddNotebook(context.Background(), &models.Notebook{Name: pointer.ToString("inbox")})

	msgs := drain(ch)
	if n := countPrefix(msgs, "notebook.add"); n != 1 {
		t.Fatalf("notebook.add events = %d, want 1: %q", n, msgs)
	}
	if !strings.Contains(msgs[0], `"local_id":"`+nb.LocalID+`"`) {
		t.Errorf("event payload missing local id: %q", msgs[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Notify(localstore.Event{Entity: localstore.EntityTag, Op: localstore.OpUpdate, LocalID: "t"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: tag.update") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestNotifyNeverBlocks(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Far more than both the loop and the client buffers hold.
	for i := 0; i < 2000; i++ {
		b.Notify(localstore.Event{Entity: localstore.EntityNote, Op: localstore.OpUpdate})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "account.switched"})
	b.Notify(localstore.Event{Entity: localstore.EntityNote, Op: localstore.OpAdd})
}
