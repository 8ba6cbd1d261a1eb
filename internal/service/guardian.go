package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/audit"
	"github.com/posdenous/naviya-launcher-sub002/internal/behavior"
	"github.com/posdenous/naviya-launcher-sub002/internal/config"
	"github.com/posdenous/naviya-launcher-sub002/internal/contacts"
	"github.com/posdenous/naviya-launcher-sub002/internal/database"
	"github.com/posdenous/naviya-launcher-sub002/internal/escalation"
	"github.com/posdenous/naviya-launcher-sub002/internal/evaluator"
	"github.com/posdenous/naviya-launcher-sub002/internal/metrics"
	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/notify"
	"github.com/posdenous/naviya-launcher-sub002/internal/permission"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
	"github.com/posdenous/naviya-launcher-sub002/internal/worker"
)

const requestSweepInterval = time.Hour

// Dependencies are the stores and outbound collaborators the guardian runs on.
type Dependencies struct {
	Store    *repository.Store
	Advocate notify.AdvocateSink
	Device   notify.DeviceControl
	Feed     notify.FlagFeed
	Registry prometheus.Registerer
}

// GuardianService wires the permission store, rule engine, escalation policy
// and contact guard for one elder.
type GuardianService struct {
	config  *config.Config
	logger  *zap.Logger
	store   *repository.Store
	feed    notify.FlagFeed
	metrics *metrics.Metrics
	now     func() time.Time

	chain       *audit.Chain
	behavior    *behavior.Log
	engine      *evaluator.Engine
	policy      *escalation.Policy
	permissions *permission.Store
	contacts    *contacts.Guard
	pool        *worker.Pool

	// infrastructure owned by NewGuardianService
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  mqtt.Client

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*GuardianService)

// WithClock overrides the wall clock of every component.
func WithClock(now func() time.Time) Option {
	return func(s *GuardianService) { s.now = now }
}

// New wires the guardian on already opened dependencies.
func New(cfg *config.Config, deps Dependencies, logger *zap.Logger, opts ...Option) (*GuardianService, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	loc, err := time.LoadLocation(cfg.Elder.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid elder timezone: %w", err)
	}

	s := &GuardianService{
		config: cfg,
		logger: logger,
		store:  deps.Store,
		feed:   deps.Feed,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.feed == nil {
		s.feed = notify.NopFlagFeed{}
	}
	advocate := deps.Advocate
	if advocate == nil {
		advocate = notify.NewLogAdvocate(logger)
	}
	device := deps.Device
	if device == nil {
		device = notify.NewLogDeviceControl(logger)
	}
	if deps.Registry != nil {
		s.metrics = metrics.New(deps.Registry)
	}

	s.chain = audit.NewChain(s.store.Audit, logger, audit.WithClock(s.now), audit.WithMetrics(s.metrics))
	s.behavior = behavior.NewLog(s.store.Behavior, logger, behavior.WithClock(s.now), behavior.WithLocation(loc))
	s.permissions = permission.NewStore(s.store.Permissions, s.chain, logger,
		permission.WithClock(s.now),
		permission.WithMetrics(s.metrics),
	)
	s.policy = escalation.NewPolicy(
		s.permissions,
		contacts.NewDirectory(s.store.Contacts),
		cfg.Elder.UserID,
		advocate,
		device,
		s.store.Flags,
		s.metrics,
		logger,
		escalation.WithLocation(cfg.Elder.Location),
	)
	s.engine = evaluator.NewEngine(s.behavior, s.store.Flags, s.chain, s.policy, logger,
		evaluator.WithClock(s.now),
		evaluator.WithFlagFeed(s.feed),
		evaluator.WithMetrics(s.metrics),
	)
	s.permissions.SetFlagRaiser(s.engine)
	s.contacts = contacts.NewGuard(cfg.Elder.UserID, s.store, s.behavior, s.chain, s.engine, s.permissions, logger,
		contacts.WithClock(s.now),
		contacts.WithMetrics(s.metrics),
	)
	s.pool = worker.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize, logger)
	return s, nil
}

// NewGuardianService opens the configured store and collaborators and wires
// the guardian on them. Optional collaborators that are not configured fall
// back to logging implementations.
func NewGuardianService(ctx context.Context, cfg *config.Config, logger *zap.Logger, registry prometheus.Registerer) (*GuardianService, error) {
	deps := Dependencies{Registry: registry}
	var (
		db          *sql.DB
		redisClient *redis.Client
		mqttClient  mqtt.Client
	)

	// 1. store
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, nothing survives a restart")
		deps.Store = repository.NewMemoryStore().Store()
	} else {
		var err error
		db, err = database.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			database.Close(db)
			return nil, err
		}
		deps.Store = repository.NewPostgresStore(db, logger)
	}

	// 2. advocate webhook
	if cfg.Advocate.BaseURL != "" {
		deps.Advocate = notify.NewAdvocateClient(cfg.Advocate.BaseURL, cfg.Advocate.Token, cfg.Advocate.Timeout, cfg.Advocate.Retries, logger)
	} else {
		logger.Warn("No advocate webhook configured, advocate notifications are logged only")
	}

	// 3. device control over MQTT
	if cfg.MQTT.Broker != "" {
		client, err := notify.DialMQTT(&cfg.MQTT)
		if err != nil {
			if db != nil {
				database.Close(db)
			}
			return nil, err
		}
		mqttClient = client
		deps.Device = notify.NewMQTTDeviceControl(client, cfg.MQTT.TopicPrefix, cfg.Elder.UserID, cfg.MQTT.QoS, logger)
	} else {
		logger.Warn("No MQTT broker configured, device commands are logged only")
	}

	// 4. live flag feed; the guardian runs without it
	if cfg.Redis.Addr != "" && cfg.Redis.FlagStream != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, flag feed disabled", zap.Error(err))
			client.Close()
		} else {
			redisClient = client
			deps.Feed = notify.NewRedisFlagFeed(client, cfg.Redis.FlagStream)
		}
	}

	s, err := New(cfg, deps, logger)
	if err != nil {
		if db != nil {
			database.Close(db)
		}
		return nil, err
	}
	s.db = db
	s.redisClient = redisClient
	s.mqttClient = mqttClient
	return s, nil
}

// Start seeds the system contacts, starts the evaluation workers and the
// pending-request sweep.
func (s *GuardianService) Start(ctx context.Context) error {
	s.logger.Info("Starting guardian service",
		zap.String("user_id", s.config.Elder.UserID),
		zap.String("driver", s.config.Database.Driver),
	)

	err := s.contacts.EnsureSystemContacts(ctx, contacts.SystemContacts{
		AdvocateName:    s.config.Elder.AdvocateName,
		AdvocatePhone:   s.config.Elder.AdvocatePhone,
		EmergencyNumber: s.config.Elder.EmergencyNumber,
	})
	if err != nil {
		return fmt.Errorf("failed to seed system contacts: %w", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.pool.Start(ctx)

	s.done = make(chan struct{})
	go s.sweepRequests(ctx)
	return nil
}

func (s *GuardianService) sweepRequests(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(requestSweepInterval)
	defer ticker.Stop()

	for {
		if _, err := s.contacts.ExpirePendingRequests(ctx); err != nil {
			s.logger.Error("Failed to expire contact requests", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop drains queued evaluations and closes owned connections.
func (s *GuardianService) Stop() error {
	s.logger.Info("Stopping guardian service")

	s.pool.Stop()
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect(250)
	}
	return nil
}

// LogCaregiverBehavior records a caregiver action and queues an abuse
// evaluation for that caregiver. The caller never waits for the evaluation.
func (s *GuardianService) LogCaregiverBehavior(ctx context.Context, caregiverID, actionType, actionContext, userResponse string) (*models.BehaviorEntry, error) {
	e, err := s.behavior.Record(ctx, caregiverID, actionType, actionContext, userResponse)
	if errors.Is(err, models.ErrInvalidArgument) {
		return nil, err
	}
	if err != nil {
		s.logger.Error("Failed to record caregiver behavior",
			zap.String("caregiver_id", caregiverID),
			zap.String("action_type", actionType),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to record behavior: %w", models.ErrStorage)
	}

	err = s.pool.Submit(worker.Job{
		Name: "analyze:" + caregiverID,
		Run: func(ctx context.Context) error {
			_, err := s.engine.Analyze(ctx, caregiverID)
			return err
		},
	})
	if err != nil {
		s.metrics.EvaluationDropped()
		s.logger.Warn("Abuse evaluation dropped",
			zap.String("caregiver_id", caregiverID),
			zap.Error(err),
		)
	}
	return e, nil
}

// ResolveFlag closes a flag after review. Resolving twice is a no-op.
func (s *GuardianService) ResolveFlag(ctx context.Context, flagID, resolvedBy, notes string) (*models.AbuseFlag, error) {
	if resolvedBy == "" {
		return nil, fmt.Errorf("resolved_by is required: %w", models.ErrInvalidArgument)
	}
	f, err := s.store.Flags.GetFlag(ctx, flagID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, s.storageError("failed to get flag", err)
	}
	if f.Resolved {
		return f, nil
	}

	now := s.now().UTC()
	f.Resolved = true
	f.ResolvedAt = &now
	f.ResolvedBy = &resolvedBy
	if notes != "" {
		f.ResolutionNotes = &notes
	}
	if err := s.store.Flags.UpdateFlag(ctx, f); err != nil {
		return nil, s.storageError("failed to update flag", err)
	}

	s.metrics.FlagResolved()
	s.chain.Record(ctx, models.AuditAbuseFlagResolved, f.CaregiverID, resolvedBy, map[string]string{
		"flag_id": f.FlagID,
		"notes":   notes,
	})
	if err := s.feed.PublishFlag(ctx, f); err != nil {
		s.logger.Warn("Failed to publish resolved flag", zap.String("flag_id", f.FlagID), zap.Error(err))
	}
	s.logger.Info("Abuse flag resolved",
		zap.String("flag_id", f.FlagID),
		zap.String("resolved_by", resolvedBy),
	)
	return f, nil
}

func (s *GuardianService) ListFlags(ctx context.Context, filters models.FlagFilters) ([]*models.AbuseFlag, error) {
	flags, err := s.store.Flags.ListFlags(ctx, filters)
	if err != nil {
		return nil, s.storageError("failed to list flags", err)
	}
	return flags, nil
}

// RiskAssessment aggregates unresolved flags; an empty caregiverID covers
// every caregiver.
func (s *GuardianService) RiskAssessment(ctx context.Context, caregiverID string) (*models.RiskAssessment, error) {
	ra, err := s.engine.RiskAssessment(ctx, caregiverID)
	if err != nil {
		return nil, s.storageError("failed to assess risk", err)
	}
	return ra, nil
}

func (s *GuardianService) VerifyAudit(ctx context.Context) (*audit.VerifyReport, error) {
	return s.chain.Verify(ctx)
}

func (s *GuardianService) ExportAudit(ctx context.Context, w io.Writer) error {
	return audit.ExportWorkbook(ctx, s.store, w)
}

// Analyze runs the rule engine synchronously.
func (s *GuardianService) Analyze(ctx context.Context, caregiverID string) ([]*models.AbuseFlag, error) {
	return s.engine.Analyze(ctx, caregiverID)
}

func (s *GuardianService) Permissions() *permission.Store { return s.permissions }

func (s *GuardianService) Contacts() *contacts.Guard { return s.contacts }

func (s *GuardianService) storageError(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, models.ErrStorage)
}
