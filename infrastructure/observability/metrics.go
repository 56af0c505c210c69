package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"casino/config"
	"casino/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the casino engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	settlementsCounter  metric.Int64Counter
	stakedCounter       metric.Int64Counter
	wonCounter          metric.Int64Counter
	netHistogram        metric.Int64Histogram
	ledgerEntries       metric.Int64Counter
	achievementsCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter named by the config
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.start(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return nil
}

// start builds the meter provider around reader. Callers hold mp.mu.
func (mp *MetricsProvider) start(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("casino")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of settled rounds"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.stakedCounter, err = mp.meter.Int64Counter(
		CoinsStakedTotal,
		metric.WithDescription("Coins reserved by settled rounds"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create staked counter: %w", err)
	}

	mp.wonCounter, err = mp.meter.Int64Counter(
		CoinsWonTotal,
		metric.WithDescription("Coins credited back by settled rounds"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create won counter: %w", err)
	}

	mp.netHistogram, err = mp.meter.Int64Histogram(
		SettlementNetHist,
		metric.WithDescription("Player net result per settled round"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create net histogram: %w", err)
	}

	mp.ledgerEntries, err = mp.meter.Int64Counter(
		LedgerEntriesTotal,
		metric.WithDescription("Total number of ledger entries posted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entries counter: %w", err)
	}

	mp.achievementsCounter, err = mp.meter.Int64Counter(
		AchievementsUnlockedTotal,
		metric.WithDescription("Total number of achievements unlocked"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create achievements counter: %w", err)
	}

	return nil
}

// Subscribe records metrics for every event the engine commits
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeGameSettled, func(ctx context.Context, e events.Event) {
		if settled, ok := e.(events.GameSettledEvent); ok {
			mp.RecordSettlement(ctx, settled)
		}
	})
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		if change, ok := e.(events.BalanceChangeEvent); ok {
			mp.RecordLedgerEntry(ctx, change)
		}
	})
	bus.Subscribe(events.EventTypeAchievementUnlocked, func(ctx context.Context, e events.Event) {
		if unlocked, ok := e.(events.AchievementUnlockedEvent); ok {
			mp.RecordAchievement(ctx, unlocked)
		}
	})
}

// RecordSettlement records one settled round
func (mp *MetricsProvider) RecordSettlement(ctx context.Context, e events.GameSettledEvent) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelGame, string(e.Game)),
		attribute.String(LabelOutcome, e.Outcome),
	)
	mp.settlementsCounter.Add(ctx, 1, attrs)
	mp.stakedCounter.Add(ctx, e.Staked, attrs)
	mp.wonCounter.Add(ctx, e.Won, attrs)
	mp.netHistogram.Record(ctx, e.Net(), attrs)
}

// RecordLedgerEntry records a posted ledger entry
func (mp *MetricsProvider) RecordLedgerEntry(ctx context.Context, e events.BalanceChangeEvent) {
	if !mp.isEnabled() {
		return
	}

	mp.ledgerEntries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelKind, string(e.Kind)),
		attribute.String(LabelGame, string(e.Game)),
	))
}

// RecordAchievement records an unlocked achievement
func (mp *MetricsProvider) RecordAchievement(ctx context.Context, e events.AchievementUnlockedEvent) {
	if !mp.isEnabled() {
		return
	}

	mp.achievementsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelCode, string(e.Code)),
	))
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
