// Command energy-sim simulates a shop-floor machine and publishes its
// voltage, load and run-state transitions to MQTT, Kafka and HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cniweb/Hackathon2025/internal/alerts"
	"github.com/cniweb/Hackathon2025/internal/config"
	"github.com/cniweb/Hackathon2025/internal/gamification"
	"github.com/cniweb/Hackathon2025/internal/generator"
	"github.com/cniweb/Hackathon2025/internal/gpio"
	"github.com/cniweb/Hackathon2025/internal/hierarchy"
	"github.com/cniweb/Hackathon2025/internal/kafka"
	"github.com/cniweb/Hackathon2025/internal/logic"
	"github.com/cniweb/Hackathon2025/internal/metrics"
	"github.com/cniweb/Hackathon2025/internal/mqtt"
	"github.com/cniweb/Hackathon2025/internal/status"
	"github.com/cniweb/Hackathon2025/internal/web"
)

type options struct {
	tick         time.Duration
	settle       time.Duration
	broker       string
	heartbeat    time.Duration
	alerts       time.Duration
	httpAddr     string
	wsBroker     string
	configPath   string
	envFile      string
	kafkaBrokers []string
	kafkaTopic   string
	ledPin       int
	printSample  bool
}

func main() {
	var o options
	flag.DurationVar(&o.tick, "tick", 100*time.Millisecond, "Simulation tick interval")
	flag.DurationVar(&o.settle, "settle", 0, "How long a new run state must hold before it is reported")
	flag.StringVar(&o.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.DurationVar(&o.alerts, "alerts", 15*time.Second, "Demo alert roll interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.StringVar(&o.configPath, "config", "", "YAML plant configuration (optional)")
	flag.StringVar(&o.envFile, "env-file", "", "dotenv file with NETWORK_* variables (optional)")
	kafkaBrokers := flag.String("kafka-brokers", "", "Comma-separated Kafka brokers (empty to disable)")
	flag.StringVar(&o.kafkaTopic, "kafka-topic", kafka.DefaultTopic, "Kafka topic for frames")
	flag.IntVar(&o.ledPin, "led-pin", -1, fmt.Sprintf("BCM pin of the run-state LED, e.g. %d (negative to disable)", gpio.DefaultPin))
	flag.BoolVar(&o.printSample, "print-sample", false, "Print one generated frame and exit")

	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	o.wsBroker = resolveWSBroker(*wsBroker, o.broker)
	o.kafkaBrokers = splitList(*kafkaBrokers)
	if err := run(o, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(o options, logger *slog.Logger) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return fmt.Errorf("load config %s: %w", o.configPath, err)
		}
	}

	load, err := cfg.RMSCycle(nil)
	if err != nil {
		return fmt.Errorf("init load generator: %w", err)
	}
	sim := generator.NewSimulator(cfg.ThreePhase(nil), load)

	// Print sample mode
	if o.printSample {
		payload, err := mqtt.FormatFrame(sim.Next(time.Now()))
		if err != nil {
			return err
		}
		fmt.Println(string(payload))
		return nil
	}

	model, err := hierarchy.NewModel(cfg.Hierarchy)
	if err != nil {
		return fmt.Errorf("init hierarchy: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	statusCfg := status.Config{
		TickMs:      o.tick.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		AlertsMs:    o.alerts.Milliseconds(),
		Broker:      o.broker,
		HTTPAddr:    o.httpAddr,
		WSBroker:    o.wsBroker,
		LEDPin:      o.ledPin,
	}
	if len(o.kafkaBrokers) > 0 {
		statusCfg.KafkaTopic = o.kafkaTopic
	}
	tracker := status.NewTracker(time.Now(), statusCfg)
	sel := model.Selection()
	tracker.SetSelection(sel, model.Tree().Describe(sel))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	m := metrics.New()

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:             o.broker,
		Logger:             logger,
		OnConnectionChange: tracker.SetMQTTConnected,
	})
	defer publisher.Close()

	var frames kafka.FrameSink
	if len(o.kafkaBrokers) > 0 {
		w, err := kafka.NewFrameWriter(kafka.Options{
			Brokers: o.kafkaBrokers,
			Topic:   o.kafkaTopic,
			Logger:  logger,
			OnError: func(error) { m.ObservePublishError(metrics.SinkKafka) },
		})
		if err != nil {
			return fmt.Errorf("init kafka: %w", err)
		}
		defer w.Close()
		frames = w
	}

	var led *gpio.RunLED
	if o.ledPin >= 0 {
		ind, err := gpio.NewRealIndicator(o.ledPin)
		if err != nil {
			logger.Warn("run-state LED disabled", slog.Int("pin", o.ledPin), slog.Any("error", err))
		} else {
			defer ind.Close()
			led = gpio.NewRunLED(ind)
		}
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("startup event buffered", slog.Any("error", err))
	} else {
		logger.Info("published startup event")
	}

	game := gamification.New()
	alertLog := alerts.NewLog(cfg.Alerts.Capacity)

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, web.Deps{
			Tracker:   tracker,
			Selection: model,
			Game:      game,
			Alerts:    alertLog,
			Metrics:   m,
			Price:     cfg.Pricing.Price(),
			Logger:    logger,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", slog.Any("error", err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info("http status server listening", slog.String("addr", o.httpAddr))
	}

	logger.Info("started",
		slog.Duration("tick", o.tick),
		slog.String("broker", o.broker),
		slog.Duration("heartbeat", o.heartbeat),
		slog.Duration("alerts", o.alerts),
		slog.Int64("cycle_ticks", load.Period()))

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	var alertTick <-chan time.Time
	if o.alerts > 0 {
		at := time.NewTicker(o.alerts)
		defer at.Stop()
		alertTick = at.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		sim:        sim,
		detector:   logic.NewDetector(o.settle, time.Now()),
		publisher:  publisher,
		mqttStatus: publisher,
		frames:     frames,
		tracker:    tracker,
		selection:  model,
		led:        led,
		alertGen:   cfg.AlertGenerator(nil),
		alertLog:   alertLog,
		game:       game,
		metrics:    m,
		heartbeat:  o.heartbeat,
		now:        time.Now,
		log:        logger,
	}, ticker.C, alertTick, sigCh)
}

// loopDeps are the components driven by runLoop. Optional sinks are nil
// when disabled.
type loopDeps struct {
	sim        *generator.Simulator
	detector   *logic.Detector
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	frames     kafka.FrameSink
	tracker    *status.Tracker
	selection  *hierarchy.Model
	led        *gpio.RunLED
	alertGen   *alerts.Generator
	alertLog   *alerts.Log
	game       *gamification.Engine
	metrics    *metrics.Metrics
	heartbeat  time.Duration
	now        func() time.Time
	log        *slog.Logger
}

func runLoop(d loopDeps, tick, alertTick <-chan time.Time, sig <-chan os.Signal) error {
	log := d.log.With(slog.String("component", "loop"))
	ctx := context.Background()

	for {
		select {
		case s := <-sig:
			log.Info("shutting down", slog.String("signal", s.String()))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			event := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", slog.Any("error", err))
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-alertTick:
			a, ok := d.alertGen.Maybe(d.now())
			if !ok {
				continue
			}
			sel := d.selection.Selection()
			a.Location, a.Machine = sel.LocationID, sel.MachineID
			d.alertLog.Add(a)
			d.metrics.ObserveAlert(string(a.Type))
			log.Info("alert", slog.String("type", string(a.Type)), slog.String("message", a.Message))
			if err := d.publisher.PublishAlert(a); err != nil {
				log.Warn("alert publish error", slog.Any("error", err))
				d.metrics.ObservePublishError(metrics.SinkMQTT)
			}
			if unlocked, err := d.game.UnlockBadge(gamification.BadgeAnomalyHunter); err == nil && unlocked {
				log.Info("badge unlocked", slog.Int("badge", gamification.BadgeAnomalyHunter))
			}

		case <-tick:
			t := d.now()
			frame := d.sim.Next(t)
			d.tracker.RecordFrame(frame)
			d.metrics.ObserveFrame(frame)

			// Samples are dropped while offline.
			if err := d.publisher.PublishFrame(frame); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
				log.Warn("sample publish error", slog.Any("error", err))
				d.metrics.ObservePublishError(metrics.SinkMQTT)
			}
			if d.frames != nil {
				if err := d.frames.WriteFrame(ctx, frame, d.selection.Selection()); err != nil {
					log.Warn("kafka write error", slog.Any("error", err))
					d.metrics.ObservePublishError(metrics.SinkKafka)
				}
			}

			for _, event := range d.detector.Process(frame.Load, t) {
				log.Info("transition",
					slog.String("event", string(event.Type)),
					slog.String("from", string(event.From)),
					slog.String("to", string(event.To)),
					slog.Int64("tick", event.Tick))
				d.metrics.ObserveTransition(event.To)
				if err := d.publisher.Publish(event); err != nil {
					log.Warn("event publish error", slog.Any("error", err))
					d.metrics.ObservePublishError(metrics.SinkMQTT)
				}
			}

			state := d.detector.CurrentState()
			d.tracker.Update(state, d.detector.IsBaselined(), d.detector.Counts())
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}

			if !d.detector.IsBaselined() {
				// Still waiting for baseline
				continue
			}
			d.metrics.SetState(state)
			if d.led != nil {
				if err := d.led.Update(state); err != nil {
					log.Warn("led write error", slog.Any("error", err))
				}
				d.tracker.SetLED(d.led.On())
			}

			if hb := d.detector.CheckHeartbeat(t, d.heartbeat); hb != nil {
				log.Info("heartbeat",
					slog.Duration("uptime", hb.Uptime),
					slog.String("state", string(hb.State)),
					slog.Int64("tick", hb.Tick),
					slog.Int("transitions", hb.Counts.Total()))

				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					d.tracker.SetNetwork(net)
				}
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", ""),
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Warn("heartbeat publish error", slog.Any("error", err))
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" || ws == "" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil || u.Hostname() == "" {
		slog.Warn("ws-broker: cannot derive from --broker", slog.String("broker", broker))
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
