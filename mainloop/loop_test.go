package mainloop

import (
	"context"
	"sync"
	"testing"
	"time"

	pluginruntime "github.com/wippyai/plugin-runtime"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == 99 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("closures did not run")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestLoop_PostBeforeStart(t *testing.T) {
	l := New()
	ran := make(chan struct{})
	if !l.Post(func(context.Context) { close(ran) }) {
		t.Fatal("Post before Start should queue")
	}
	l.Start()
	defer l.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued closure did not run after Start")
	}
}

func TestLoop_OnLoop(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	if OnLoop(context.Background()) {
		t.Fatal("background context reported as loop")
	}

	result := make(chan bool, 1)
	l.Post(func(ctx context.Context) { result <- OnLoop(ctx) })
	if !<-result {
		t.Fatal("closure context not marked as loop")
	}
}

func TestLoop_PostFromLoop(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	done := make(chan struct{})
	l.Post(func(context.Context) {
		l.Post(func(context.Context) { close(done) })
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested post did not run")
	}
}

func TestLoop_RecoversPanic(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	done := make(chan struct{})
	l.Post(func(context.Context) { panic("boom") })
	l.Post(func(context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop died after panic")
	}
}

func TestLoop_Stop(t *testing.T) {
	l := New()
	l.Start()
	l.Stop()
	l.Stop()

	if l.Post(func(context.Context) {}) {
		t.Fatal("Post after Stop should fail")
	}
	l.Start() // no-op after stop
	if l.Post(func(context.Context) {}) {
		t.Fatal("loop restarted after Stop")
	}
}

func TestLoop_RunUntilContextDone(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(finished)
	}()

	ran := make(chan struct{})
	l.Post(func(context.Context) { close(ran) })
	<-ran
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_CallOnMainThread(t *testing.T) {
	l := New()
	l.Start()
	defer l.Stop()

	got := make(chan pluginruntime.Result, 1)
	start := time.Now()
	l.CallOnMainThread(20*time.Millisecond, pluginruntime.CompletionCallback{
		Func: func(r pluginruntime.Result) { got <- r },
	}, pluginruntime.ErrorAborted)

	select {
	case r := <-got:
		if r != pluginruntime.ErrorAborted {
			t.Fatalf("result = %v, want aborted", r)
		}
		if time.Since(start) < 20*time.Millisecond {
			t.Fatal("callback ran before delay")
		}
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}

	// Unset callbacks are ignored.
	l.CallOnMainThread(0, pluginruntime.CompletionCallback{}, pluginruntime.OK)
}
