package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/playcoach/internal/adapter/repository"
	"github.com/johnquangdev/playcoach/internal/infrastructure/cache"
	"github.com/johnquangdev/playcoach/internal/infrastructure/database"
	"github.com/johnquangdev/playcoach/internal/infrastructure/notify"
	"github.com/johnquangdev/playcoach/internal/infrastructure/storage"
	"github.com/johnquangdev/playcoach/internal/usecase/aggregate"
	"github.com/johnquangdev/playcoach/internal/usecase/analysis"
	"github.com/johnquangdev/playcoach/internal/usecase/coding"
	"github.com/johnquangdev/playcoach/internal/usecase/feedback"
	"github.com/johnquangdev/playcoach/internal/usecase/scoring"
	"github.com/johnquangdev/playcoach/internal/usecase/transcription"
	pkgai "github.com/johnquangdev/playcoach/pkg/ai"
	"github.com/johnquangdev/playcoach/pkg/config"
	"github.com/johnquangdev/playcoach/pkg/jwt"
)

// Container holds the wired services shared by the API server and the CLI
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *gorm.DB
	Redis *redis.Client // nil when running on the in-memory fallback

	Recordings *repository.RecordingRepository
	Utterances *repository.UtteranceRepository

	Orchestrator *analysis.Orchestrator
	Workers      *analysis.WorkerPool
	Aggregator   *aggregate.Aggregator
	JWT          *jwt.Manager
}

// Build connects infrastructure and wires the recording pipeline
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	logger.Info("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db
	logger.Info("✅ Database connected")

	if cfg.Database.AutoMigrate {
		n, err := database.Migrate(db, database.DefaultMigrationsDir, false)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("🔄 Migrations applied", zap.Int("count", n))
	}

	c.Recordings = repository.NewRecordingRepository(db)
	c.Utterances = repository.NewUtteranceRepository(db)

	locker, notifier, err := c.buildCoordination(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("🗄️ Connecting to object storage...")
	audio, err := storage.NewMinIOAudioSource(&cfg.Storage)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	transcriber, err := buildTranscription(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	scorer, err := buildScorer(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("🤖 Initializing generation components...")
	llm := pkgai.NewGroqClient(&cfg.Groq, logger)

	pipeline := analysis.NewPipeline(analysis.PipelineDeps{
		Recordings:  c.Recordings,
		Utterances:  c.Utterances,
		Audio:       audio,
		Transcriber: transcriber,
		Roles:       coding.NewLLMRoleClassifier(llm, logger),
		Coder:       coding.NewLLMBehavioralCoder(llm, logger),
		Scorer:      scorer,
		Synthesizer: feedback.NewSynthesizer(llm, logger),
	}, cfg.Pipeline, logger)

	c.Orchestrator = analysis.NewOrchestrator(analysis.OrchestratorDeps{
		Recordings: c.Recordings,
		Runner:     pipeline,
		Notifier:   notifier,
		Audio:      audio,
		Locker:     locker,
		Phases:     aggregate.NewPhaseChecker(c.Recordings, notifier, cfg.Pipeline.MasteryScore, logger),
	}, cfg.Pipeline, logger)

	c.Workers = analysis.NewWorkerPool(c.Orchestrator, c.Recordings, cfg.Pipeline, logger)
	c.Aggregator = aggregate.NewAggregator(c.Recordings, logger)
	c.JWT = jwt.NewManager(cfg.JWT.ServiceSecret, cfg.JWT.Issuer, cfg.JWT.TokenExpiry)

	logger.Info("✅ Pipeline wired",
		zap.String("transcription_mode", cfg.Pipeline.TranscriptionMode),
		zap.Int("max_attempts", cfg.Pipeline.MaxAttempts),
		zap.Bool("redis", c.Redis != nil),
	)
	return c, nil
}

// buildCoordination picks redis-backed locks and notifications, falling back
// to process-local ones outside production when redis is unreachable
func (c *Container) buildCoordination(cfg *config.Config, logger *zap.Logger) (analysis.Locker, analysis.Notifier, error) {
	logger.Info("📦 Connecting to Redis...")
	client, err := cache.NewRedisClient(cfg)
	if err != nil {
		if cfg.Server.Environment == "production" {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Warn("⚠️ Redis unavailable, using in-memory locks and log notifications", zap.Error(err))
		return cache.NewMemoryLocker(cache.NewMemoryStore()), notify.NewLogNotifier(logger), nil
	}
	c.Redis = client
	return cache.NewRedisLocker(client, logger),
		notify.NewRedisNotifier(client, cfg.Notify.UserChannel, cfg.Notify.OpsChannel, logger),
		nil
}

// buildTranscription registers only the providers the configured mode calls
func buildTranscription(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*transcription.Orchestrator, error) {
	var transcribers []pkgai.Transcriber

	if cfg.Pipeline.NeedsProvider(pkgai.ProviderAssemblyAI) {
		transcribers = append(transcribers, pkgai.NewAssemblyAITranscriber(&cfg.Assembly, logger))
	}
	if cfg.Pipeline.NeedsProvider(pkgai.ProviderGoogleSTT) {
		google, err := pkgai.NewGoogleSTTTranscriber(ctx, cfg.GoogleSTT, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize google speech-to-text: %w", err)
		}
		transcribers = append(transcribers, google)
	}

	return transcription.NewOrchestrator(logger, transcribers...), nil
}

func buildScorer(cfg *config.Config, logger *zap.Logger) (scoring.Strategy, error) {
	weights := scoring.DefaultWeights()
	if path := cfg.Pipeline.ScoringWeightsFile; path != "" {
		w, err := scoring.LoadWeights(path)
		if err != nil {
			return nil, err
		}
		weights = w
		logger.Info("⚖️ Loaded scoring weights", zap.String("path", path))
	}
	return scoring.NewWeightedScorer(weights), nil
}

// Close releases the database and redis connections
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && c.Logger != nil {
			c.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if err := database.CloseDB(c.DB); err != nil && c.Logger != nil {
			c.Logger.Warn("failed to close database", zap.Error(err))
		}
	}
}
