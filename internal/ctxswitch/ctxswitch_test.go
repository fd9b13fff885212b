package ctxswitch

import (
	"testing"
	"time"
)

func TestSwitchHandsOffAndResumes(t *testing.T) {
	boot := New()
	worker := New()

	order := make(chan string, 4)

	go func() {
		worker.Await()
		order <- "worker-first-run"
		Switch(worker, boot)
		t.Error("worker resumed after switching away to boot; should never run again")
	}()

	order <- "main-before-switch"
	Switch(boot, worker)
	order <- "main-after-switch"
	close(order)

	got := drain(order)
	want := []string{"main-before-switch", "worker-first-run", "main-after-switch"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("order[%d] = %q, want %q (full: %v)", i, got[i], w, got)
		}
	}
}

func TestSwitchAwayDoesNotBlockCaller(t *testing.T) {
	boot := New()
	worker := New()

	done := make(chan struct{})
	go func() {
		worker.Await()
		close(done)
	}()

	finished := make(chan struct{})
	go func() {
		SwitchAway(worker)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("SwitchAway blocked its caller")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker was never handed the baton")
	}
	_ = boot
}

func drain(ch chan string) []string {
	var out []string
	for s := range ch {
		out = append(out, s)
	}
	return out
}
