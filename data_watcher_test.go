package main

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTransport scripts RCON behavior for watcher and poller tests.
type fakeTransport struct {
	mu      sync.Mutex
	ready   bool
	handler func(cmd string) (string, error)
}

func (f *fakeTransport) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeTransport) Execute(cmd string) (string, error) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	return handler(cmd)
}

func (f *fakeTransport) setReady(ready bool) {
	f.mu.Lock()
	f.ready = ready
	f.mu.Unlock()
}

func (f *fakeTransport) setHandler(handler func(cmd string) (string, error)) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
}

// eventRecorder collects player events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []PlayerEvent
}

func (r *eventRecorder) OnPlayerEvent(event PlayerEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *eventRecorder) all() []PlayerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PlayerEvent(nil), r.events...)
}

func (r *eventRecorder) summary() []string {
	var out []string
	for _, e := range r.all() {
		out = append(out, e.Type+":"+e.Player)
	}
	return out
}

func dataResponse(names ...string) string {
	var b strings.Builder
	for i, name := range names {
		fmt.Fprintf(&b, "%s has the following entity data: {Health:20.0f,XpLevel:%d}", name, i)
	}
	return b.String()
}

func testWatchConfig() WatchConfig {
	return WatchConfig{
		Mode:         "data",
		PollInterval: time.Second,
		AFKTime:      time.Minute,
		BotPattern:   "bot_",
	}
}

type listCall struct {
	name   string
	online []string
}

func TestDataWatcherDiffAndDispatch(t *testing.T) {
	ft := &fakeTransport{ready: true}
	ft.setHandler(func(string) (string, error) { return dataResponse("A", "B"), nil })

	store := NewPlayerStore()
	registry := NewCallbackRegistry()
	w := NewDataWatcher(ft, testWatchConfig(), store, registry, nil)

	var calls []listCall
	registry.OnPlayerList(func(name string, online []string) {
		calls = append(calls, listCall{name, online})
	})
	rec := &eventRecorder{}
	w.Subscribe(rec)

	if err := w.fetchCycle(time.Now()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}
	want := []listCall{
		{"A", []string{"A", "B"}},
		{"B", []string{"A", "B"}},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("cycle 1 list calls = %+v, want %+v", calls, want)
	}

	calls = nil
	ft.setHandler(func(string) (string, error) { return dataResponse("B", "C"), nil })
	if err := w.fetchCycle(time.Now()); err != nil {
		t.Fatalf("cycle 2: %v", err)
	}

	// A left, C joined; callbacks fire in sorted order with the final list.
	want = []listCall{
		{"A", []string{"B", "C"}},
		{"C", []string{"B", "C"}},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("cycle 2 list calls = %+v, want %+v", calls, want)
	}

	if got := store.Names(); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Fatalf("store names = %v", got)
	}
	wantEvents := []string{"join:A", "join:B", "join:C", "leave:A"}
	if got := rec.summary(); !reflect.DeepEqual(got, wantEvents) {
		t.Fatalf("events = %v, want %v", got, wantEvents)
	}
}

func TestDataWatcherFiltersBots(t *testing.T) {
	ft := &fakeTransport{ready: true}
	ft.setHandler(func(string) (string, error) { return dataResponse("Steve", "bot_7"), nil })

	store := NewPlayerStore()
	registry := NewCallbackRegistry()
	w := NewDataWatcher(ft, testWatchConfig(), store, registry, nil)

	if err := w.fetchCycle(time.Now()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if got := w.Online(); !reflect.DeepEqual(got, []string{"Steve"}) {
		t.Fatalf("online = %v", got)
	}
	if _, ok := store.Get("bot_7"); ok {
		t.Fatal("bot record made it into the store")
	}
}

func TestDataWatcherDecodeFailureStillCountsOnline(t *testing.T) {
	raw := "Steve has the following entity data: {Health:{{" +
		"Alex has the following entity data: {Health:20.0f}"
	ft := &fakeTransport{ready: true}
	ft.setHandler(func(string) (string, error) { return raw, nil })

	store := NewPlayerStore()
	registry := NewCallbackRegistry()
	w := NewDataWatcher(ft, testWatchConfig(), store, registry, nil)

	var infoNames []string
	registry.OnPlayerInfo(nil, func(name string, _ map[string]any) {
		infoNames = append(infoNames, name)
	})

	if err := w.fetchCycle(time.Now()); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if got := w.Online(); !reflect.DeepEqual(got, []string{"Steve", "Alex"}) {
		t.Fatalf("online = %v", got)
	}
	if !reflect.DeepEqual(infoNames, []string{"Alex"}) {
		t.Fatalf("info dispatched for %v, want Alex only", infoNames)
	}
	if _, ok := store.Get("Steve"); ok {
		t.Fatal("failed decode produced a store record")
	}
	if _, ok := store.Get("Alex"); !ok {
		t.Fatal("Alex missing from store")
	}
}

func TestDataWatcherTransportErrorLeavesStateAlone(t *testing.T) {
	ft := &fakeTransport{ready: true}
	ft.setHandler(func(string) (string, error) { return dataResponse("Steve"), nil })

	store := NewPlayerStore()
	registry := NewCallbackRegistry()
	w := NewDataWatcher(ft, testWatchConfig(), store, registry, nil)
	if err := w.fetchCycle(time.Now()); err != nil {
		t.Fatalf("cycle 1: %v", err)
	}

	ft.setHandler(func(string) (string, error) { return "", fmt.Errorf("connection reset") })
	if err := w.fetchCycle(time.Now()); err == nil {
		t.Fatal("cycle should fail when transport fails")
	}
	if got := w.Online(); !reflect.DeepEqual(got, []string{"Steve"}) {
		t.Fatalf("online changed on failed cycle: %v", got)
	}
	if _, ok := store.Get("Steve"); !ok {
		t.Fatal("store record dropped on failed cycle")
	}
}

func TestDataWatcherPresenceHooks(t *testing.T) {
	ft := &fakeTransport{ready: true}
	store := NewPlayerStore()
	w := NewDataWatcher(ft, testWatchConfig(), store, NewCallbackRegistry(), nil)

	w.NotifyJoin("Steve")
	w.NotifyJoin("Steve") // duplicate join is a no-op
	w.NotifyJoin("bot_7") // bots never enter the list
	if got := w.Online(); !reflect.DeepEqual(got, []string{"Steve"}) {
		t.Fatalf("online = %v", got)
	}

	w.NotifyLeave("Steve")
	w.NotifyLeave("Steve")
	if got := w.Online(); len(got) != 0 {
		t.Fatalf("online after leave = %v", got)
	}
}
