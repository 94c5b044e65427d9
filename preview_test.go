package vitrail

import (
	"sync"
	"testing"
	"time"
)

type previewLog struct {
	mu   sync.Mutex
	got  []string
	done chan struct{}
}

func newPreviewLog(expect int) (*previewLog, PreviewFunc) {
	l := &previewLog{done: make(chan struct{})}
	n := 0
	return l, func(callID, windowID, markup string) {
		l.mu.Lock()
		l.got = append(l.got, callID+"/"+windowID+"/"+markup)
		n++
		if n == expect {
			close(l.done)
		}
		l.mu.Unlock()
	}
}

func (l *previewLog) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-l.done:
	case <-time.After(5 * time.Second):
		t.Fatal("preview never delivered")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.got...)
}

func TestPreviewSchedulerDebounces(t *testing.T) {
	log, apply := newPreviewLog(1)
	s := NewPreviewScheduler(30*time.Millisecond, apply)

	// Rapid updates for the same call collapse to the newest markup.
	s.Schedule("c1", "", "<p>a</p>")
	s.Schedule("c1", "", "<p>ab</p>")
	s.Schedule("c1", "w1", "<p>abc</p>")

	got := log.wait(t)
	if len(got) != 1 || got[0] != "c1/w1/<p>abc</p>" {
		t.Errorf("delivered = %v", got)
	}
}

func TestPreviewSchedulerIndependentCalls(t *testing.T) {
	log, apply := newPreviewLog(2)
	s := NewPreviewScheduler(10*time.Millisecond, apply)

	s.Schedule("c1", "w1", "<p>one</p>")
	s.Schedule("c2", "w2", "<p>two</p>")

	got := log.wait(t)
	if len(got) != 2 {
		t.Fatalf("delivered = %v", got)
	}
}

func TestPreviewSchedulerCancel(t *testing.T) {
	var fired bool
	var mu sync.Mutex
	s := NewPreviewScheduler(20*time.Millisecond, func(_, _, _ string) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	s.Schedule("c1", "", "<p>stale</p>")
	s.Cancel("c1")

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Error("cancelled preview still fired")
	}
}

func TestPreviewSchedulerCancelAll(t *testing.T) {
	var mu sync.Mutex
	var count int
	s := NewPreviewScheduler(20*time.Millisecond, func(_, _, _ string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	s.Schedule("c1", "", "a")
	s.Schedule("c2", "", "b")
	s.CancelAll()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("fired %d previews after CancelAll", count)
	}
}
