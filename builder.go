package goSSO

import (
	"errors"

	"github.com/MrEthical07/goSSO/event"
	"github.com/MrEthical07/goSSO/jwt"
	"github.com/MrEthical07/goSSO/ticket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory UserDirectory
	handlers  []event.Handler

	built bool
}

// New returns a builder seeded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	defaults := defaultConfig()
	merged := cloneConfig(cfg)
	if merged.SSO.TTL == 0 {
		merged.SSO.TTL = defaults.SSO.TTL
	}
	if merged.Action.TTL == 0 {
		merged.Action.TTL = defaults.Action.TTL
	}
	if merged.Action.PrivilegedTTL == 0 {
		merged.Action.PrivilegedTTL = defaults.Action.PrivilegedTTL
	}
	if merged.Reset.TokenTTL == 0 {
		merged.Reset.TokenTTL = defaults.Reset.TokenTTL
	}
	if merged.Reset.GuardTTL == 0 {
		merged.Reset.GuardTTL = defaults.Reset.GuardTTL
	}
	if merged.Reset.MaxFailures == 0 {
		merged.Reset.MaxFailures = defaults.Reset.MaxFailures
	}
	if merged.Reset.OTPDigits == 0 {
		merged.Reset.OTPDigits = defaults.Reset.OTPDigits
	}
	if merged.Reset.MinPasswordLength == 0 {
		merged.Reset.MinPasswordLength = defaults.Reset.MinPasswordLength
	}
	if merged.Session.TTL == 0 {
		merged.Session.TTL = defaults.Session.TTL
	}
	if merged.Events.Stream == "" {
		merged.Events.Stream = defaults.Events.Stream
	}
	if merged.Events.DedupTTL == 0 {
		merged.Events.DedupTTL = defaults.Events.DedupTTL
	}
	if merged.Events.BatchSize == 0 {
		merged.Events.BatchSize = defaults.Events.BatchSize
	}
	if merged.Events.Block == 0 {
		merged.Events.Block = defaults.Events.Block
	}
	if merged.Events.PendingIdle == 0 {
		merged.Events.PendingIdle = defaults.Events.PendingIdle
	}
	if merged.Events.RetryInterval == 0 {
		merged.Events.RetryInterval = defaults.Events.RetryInterval
	}
	b.config = merged
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithEventHandlers registers the handlers dispatched by this process's
// consumer loop. Handlers take effect only when [EventConfig].Group is set.
func (b *Builder) WithEventHandlers(handlers ...event.Handler) *Builder {
	b.handlers = append(b.handlers, handlers...)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and starts the event
// consumer loop when a consumer group is configured.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SSO.TTL = clampSSOTTL(cfg.SSO.TTL)

	engine := &Engine{
		config:    cfg,
		redis:     b.redis,
		directory: b.directory,
		tickets:   ticket.NewStore(b.redis, "sso"),
		actions:   newActionStore(b.redis),
		ptks:      newPTKStore(b.redis),
		resets:    newResetStore(b.redis),
		versions:  newVersionStore(b.redis),
		publisher: event.NewPublisher(b.redis, cfg.Events.Stream),
		metrics:   NewMetrics(cfg.Metrics),
	}

	if len(cfg.Session.SigningKey) > 0 {
		sm, err := jwt.NewManager(jwt.Config{
			SessionTTL: cfg.Session.TTL,
			SigningKey: cfg.Session.SigningKey,
			Issuer:     cfg.Session.Issuer,
		})
		if err != nil {
			return nil, err
		}
		engine.sessions = sm
	}

	if cfg.Events.Group != "" {
		registry := event.NewRegistry()
		for _, h := range b.handlers {
			registry.Register(h)
		}

		consumerName := cfg.Events.Consumer
		if consumerName == "" {
			consumerName = "goSSO-" + uuid.NewString()
		}

		engine.consumer = event.NewConsumer(b.redis, event.Config{
			Stream:        cfg.Events.Stream,
			Group:         cfg.Events.Group,
			Consumer:      consumerName,
			BatchSize:     cfg.Events.BatchSize,
			Block:         cfg.Events.Block,
			DedupTTL:      cfg.Events.DedupTTL,
			PendingIdle:   cfg.Events.PendingIdle,
			RetryInterval: cfg.Events.RetryInterval,
		}, registry)
		if err := engine.consumer.Start(); err != nil {
			return nil, err
		}
	}

	b.built = true

	return engine, nil
}
