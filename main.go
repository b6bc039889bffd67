package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Watcher is the common surface of the two polling modes.
type Watcher interface {
	Run(ctx context.Context)
	Stop()
	WaitUntilStopped(timeout time.Duration) bool
	ManualFetch()
	Subscribe(sub EventSubscriber)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Shared RCON pool
	rconPool := NewRCONPool(cfg.RCON.Host, cfg.RCON.Port, cfg.RCON.Password)
	defer rconPool.Close()

	// OTel metric exporter
	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure())
	if err != nil {
		log.Fatalf("metric exporter: %v", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)
	defer meterProvider.Shutdown(ctx)

	// OTel log exporter
	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithInsecure())
	if err != nil {
		log.Fatalf("log exporter: %v", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	defer loggerProvider.Shutdown(ctx)
	logger := loggerProvider.Logger(cfg.OTel.ServiceName)

	// Core state
	store := NewPlayerStore()
	registry := NewCallbackRegistry()
	metrics, err := NewMetrics(meterProvider, store, cfg.Watch.Mode)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	// Watcher (one mode active at a time)
	var watcher Watcher
	var hooks PresenceHooks
	switch cfg.Watch.Mode {
	case "data":
		dw := NewDataWatcher(rconPool, cfg.Watch, store, registry, metrics)
		watcher, hooks = dw, dw
	case "position":
		watcher = NewPosWatcher(rconPool, cfg.Watch, store, registry, metrics)
	}

	otelSub := &OTelLogSubscriber{logger: logger}
	watcher.Subscribe(otelSub)

	// Discord channel (optional)
	var channels []Channel
	if cfg.Discord.Enabled {
		dc, err := NewDiscordChannel(cfg.Discord.BotToken, cfg.Discord.ChannelID, &cfg)
		if err != nil {
			log.Fatalf("discord: %v", err)
		}
		channels = append(channels, dc)
	}

	// Bridge
	bridge := NewBridge(rconPool, channels)
	bridgeSub := &BridgeSubscriber{events: bridge.Events()}
	watcher.Subscribe(bridgeSub)

	// Session history (optional)
	if cfg.Sessions.Enabled {
		sessions, err := OpenSessionRecorder(cfg.Sessions.Path)
		if err != nil {
			log.Fatalf("sessions: %v", err)
		}
		defer sessions.Close()
		watcher.Subscribe(sessions)
	}

	var wg sync.WaitGroup

	// Server log tailer (optional, in-cluster only)
	if cfg.LogTail.Enabled {
		k8s := NewK8sClient(cfg.LogTail.Namespace)
		tailer := NewLogTailer(cfg.LogTail.PodLabel, k8s, hooks)
		tailer.Subscribe(otelSub)
		tailer.Subscribe(bridgeSub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tailer.Run(ctx)
		}()
	}

	// Live WebSocket view (optional)
	if cfg.Live.Enabled {
		live := NewLiveServer(cfg.Live.Addr, store, watcher.ManualFetch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			live.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		bridge.FanOutEvents(ctx)
	}()

	for _, ch := range channels {
		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			if err := c.Start(ctx); err != nil {
				log.Printf("channel %s: %v", c.Name(), err)
			}
		}(ch)

		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			bridge.HandleInbound(ctx, c)
		}(ch)
	}

	channelNames := make([]string, len(channels))
	for i, ch := range channels {
		channelNames[i] = ch.Name()
	}
	log.Printf("mcwatch started (mode=%s, interval=%s, channels=%v)",
		cfg.Watch.Mode, cfg.Watch.PollInterval, channelNames)

	<-ctx.Done()
	watcher.Stop()
	if !watcher.WaitUntilStopped(3 * time.Second) {
		log.Println("watcher did not stop in time")
	}
	wg.Wait()
	log.Println("shutting down")
}
