package main

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"
)

// dataQueryCmd asks the server for the complete entity compound of every
// online player in a single response.
const dataQueryCmd = "execute as @a run data get entity @s"

// DataWatcher polls full entity data for every online player, keeps the store
// in sync with the observed online set, and feeds the callback registry.
type DataWatcher struct {
	*poller

	transport Transport
	cfg       WatchConfig
	store     *PlayerStore
	registry  *CallbackRegistry
	metrics   *Metrics

	subMu       sync.Mutex
	subscribers []EventSubscriber

	// online mirrors the store's key set but preserves first-seen order, the
	// order list callbacks observe. Host join/leave hooks may adjust it
	// between cycles.
	onlineMu sync.Mutex
	online   []string
}

func NewDataWatcher(transport Transport, cfg WatchConfig, store *PlayerStore, registry *CallbackRegistry, metrics *Metrics) *DataWatcher {
	w := &DataWatcher{
		transport: transport,
		cfg:       cfg,
		store:     store,
		registry:  registry,
		metrics:   metrics,
	}
	w.poller = newPoller("data", transport, cfg.PollInterval, metrics, w.fetchCycle)
	return w
}

// Subscribe adds a player-event subscriber (join/leave).
func (w *DataWatcher) Subscribe(sub EventSubscriber) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	w.subscribers = append(w.subscribers, sub)
}

// Online returns the current online names in first-seen order.
func (w *DataWatcher) Online() []string {
	w.onlineMu.Lock()
	defer w.onlineMu.Unlock()
	return append([]string(nil), w.online...)
}

// NotifyJoin seeds a name into the online list between polls (host join
// hook). Bots are filtered here too; the store itself is only ever touched by
// fetch cycles.
func (w *DataWatcher) NotifyJoin(name string) {
	if isBotName(name, w.cfg.BotPattern) {
		return
	}
	w.onlineMu.Lock()
	defer w.onlineMu.Unlock()
	for _, n := range w.online {
		if n == name {
			return
		}
	}
	w.online = append(w.online, name)
}

// NotifyLeave prunes a name from the online list between polls (host leave
// hook).
func (w *DataWatcher) NotifyLeave(name string) {
	w.onlineMu.Lock()
	defer w.onlineMu.Unlock()
	for i, n := range w.online {
		if n == name {
			w.online = append(w.online[:i], w.online[i+1:]...)
			return
		}
	}
}

func (w *DataWatcher) fetchCycle(now time.Time) error {
	raw, err := w.transport.Execute(dataQueryCmd)
	if err != nil {
		return fmt.Errorf("query entity data: %w", err)
	}

	results := decodeResponse(raw)
	online := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	type sample struct {
		name          string
		pos, dim, rot any
	}
	var samples []sample

	for _, res := range results {
		if isBotName(res.Name, w.cfg.BotPattern) || seen[res.Name] {
			continue
		}
		seen[res.Name] = true
		// A name whose payload failed to decode still counts as online; only
		// its info update is skipped this cycle.
		online = append(online, res.Name)
		if res.Err != nil {
			w.metrics.DecodeFailure()
			log.Printf("[data] decode failed for %s: %v", res.Name, res.Err)
			continue
		}
		w.store.Set(res.Name, &PlayerRecord{Name: res.Name, Attributes: res.Data, LastSeen: now})
		w.registry.DispatchInfo(res.Name, res.Data)
		if w.cfg.Debug && len(samples) < 3 {
			samples = append(samples, sample{res.Name, res.Data["Pos"], res.Data["Dimension"], res.Data["Rotation"]})
		}
	}

	added, removed := w.applyOnline(online)
	for _, name := range removed {
		w.store.Delete(name)
	}

	if len(added)+len(removed) > 0 {
		changed := make([]string, 0, len(added)+len(removed))
		changed = append(changed, added...)
		changed = append(changed, removed...)
		sort.Strings(changed)
		snapshot := w.Online()
		for _, name := range changed {
			w.registry.DispatchList(name, snapshot)
		}
		for _, name := range added {
			w.emit(PlayerEvent{Type: EventJoin, Player: name, Time: now})
		}
		for _, name := range removed {
			w.emit(PlayerEvent{Type: EventLeave, Player: name, Time: now})
		}
	}

	if w.cfg.Debug {
		log.Printf("[data] fetched players: %v", online)
		for _, s := range samples {
			log.Printf("[data] sample %s: Pos=%v Dimension=%v Rotation=%v", s.name, s.pos, s.dim, s.rot)
		}
	}
	return nil
}

// applyOnline diffs this cycle's online names against the tracked list and
// commits the result, keeping first-seen order for survivors and appending
// newcomers in response order.
func (w *DataWatcher) applyOnline(online []string) (added, removed []string) {
	w.onlineMu.Lock()
	defer w.onlineMu.Unlock()

	current := make(map[string]bool, len(online))
	for _, n := range online {
		current[n] = true
	}
	previous := make(map[string]bool, len(w.online))
	kept := make([]string, 0, len(online))
	for _, n := range w.online {
		previous[n] = true
		if current[n] {
			kept = append(kept, n)
		} else {
			removed = append(removed, n)
		}
	}
	for _, n := range online {
		if !previous[n] {
			added = append(added, n)
			kept = append(kept, n)
		}
	}
	w.online = kept
	return added, removed
}

func (w *DataWatcher) emit(event PlayerEvent) {
	w.subMu.Lock()
	subs := append([]EventSubscriber(nil), w.subscribers...)
	w.subMu.Unlock()
	for _, sub := range subs {
		invoke(func() { sub.OnPlayerEvent(event) })
	}
}
