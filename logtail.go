package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"regexp"
	"time"
)

var (
	mcChatPattern  = regexp.MustCompile(`\[Server thread/INFO\]: <(\w+)> (.+)`)
	mcJoinPattern  = regexp.MustCompile(`\[Server thread/INFO\]: (\w+) joined the game`)
	mcLeavePattern = regexp.MustCompile(`\[Server thread/INFO\]: (\w+) left the game`)
)

// PresenceHooks receives join/leave notifications from sources other than the
// poll loop, seeding or pruning the online list between cycles.
type PresenceHooks interface {
	NotifyJoin(name string)
	NotifyLeave(name string)
}

// LogTailer tails the Minecraft server pod's logs, turning chat/join/leave
// lines into player events. Join and leave lines additionally feed the
// watcher's presence hooks so the online list reacts faster than the poll
// cadence.
type LogTailer struct {
	podLabel    string
	k8s         *K8sClient
	hooks       PresenceHooks
	lastPod     string
	subscribers []EventSubscriber
}

func NewLogTailer(podLabel string, k8s *K8sClient, hooks PresenceHooks) *LogTailer {
	return &LogTailer{
		podLabel: podLabel,
		k8s:      k8s,
		hooks:    hooks,
	}
}

func (t *LogTailer) Subscribe(sub EventSubscriber) {
	t.subscribers = append(t.subscribers, sub)
}

func (t *LogTailer) Run(ctx context.Context) {
	for {
		if err := t.tail(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("log tail error: %v, retrying in 10s", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (t *LogTailer) tail(ctx context.Context) error {
	podName, err := t.k8s.FindPod(ctx, t.podLabel)
	if err != nil {
		return fmt.Errorf("find pod: %w", err)
	}

	if t.lastPod != podName {
		log.Printf("tailing logs from pod %s/%s", t.k8s.namespace, podName)
		t.lastPod = podName
	}

	body, err := t.k8s.StreamLogs(ctx, podName)
	if err != nil {
		return fmt.Errorf("stream logs: %w", err)
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		t.parseLine(scanner.Text())
	}
	return scanner.Err()
}

func (t *LogTailer) parseLine(line string) {
	now := time.Now()
	var event *PlayerEvent

	if m := mcChatPattern.FindStringSubmatch(line); m != nil {
		event = &PlayerEvent{Type: EventChat, Player: m[1], Message: m[2], Time: now}
	} else if m := mcJoinPattern.FindStringSubmatch(line); m != nil {
		event = &PlayerEvent{Type: EventJoin, Player: m[1], Time: now}
		if t.hooks != nil {
			t.hooks.NotifyJoin(m[1])
		}
	} else if m := mcLeavePattern.FindStringSubmatch(line); m != nil {
		event = &PlayerEvent{Type: EventLeave, Player: m[1], Time: now}
		if t.hooks != nil {
			t.hooks.NotifyLeave(m[1])
		}
	}

	if event != nil {
		for _, sub := range t.subscribers {
			sub.OnPlayerEvent(*event)
		}
	}
}
