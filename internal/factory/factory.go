package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"eventconnect-server/internal/audit"
	"eventconnect-server/internal/client"
	"eventconnect-server/internal/config"
	"eventconnect-server/internal/handler"
	"eventconnect-server/internal/notify"
	"eventconnect-server/internal/service"
	"eventconnect-server/internal/storage"
	"eventconnect-server/internal/store"
	"eventconnect-server/internal/util"
)

// Factory manages the lifecycle of all application dependencies.
type Factory struct {
	config *config.Config

	// Clients
	redisClient   *client.RedisClient
	kafkaProducer *client.KafkaProducer

	// Collaborators
	kv        store.KV
	notifier  notify.Notifier
	blobs     storage.BlobStore
	events    *audit.Publisher
	authSvc   *service.AuthService
	accounts  *service.AccountService
	closeOnce sync.Once
}

// NewFactory loads configuration and initializes every dependency. Optional
// backends (SMS, Kafka, Cloudinary) are skipped when unconfigured; Redis is
// required in production.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	f := &Factory{config: cfg}

	if err := f.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}
	f.initializeCollaborators()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("sms_configured", cfg.SMSConfigured()),
		util.Bool("kafka_configured", f.kafkaProducer != nil),
		util.Bool("blob_store_configured", f.blobs != nil),
		util.Bool("demo_expose", cfg.SMS.DemoExpose),
	)

	return f, nil
}

func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		if f.config.IsProduction() {
			return fmt.Errorf("redis: %w", err)
		}
		util.Warn("Redis unavailable - falling back to in-memory store", util.ErrorField(err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("redis health check: %w", err)
		}
		util.Info("Redis client initialized and healthy")
	}

	// Kafka (optional, best-effort audit trail)
	if len(f.config.Kafka.Brokers) > 0 {
		if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without audit events", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	return nil
}

func (f *Factory) initializeCollaborators() {
	if f.redisClient != nil {
		f.kv = store.NewRedisKV(f.redisClient)
	} else {
		f.kv = store.NewMemoryKV()
	}

	if f.config.SMSConfigured() {
		f.notifier = notify.NewTwilioClient(f.config.SMS, util.Get())
	} else {
		util.Warn("SMS gateway not configured - OTP codes will not be delivered")
	}

	if f.config.CloudinaryConfigured() {
		blobs, err := storage.NewCloudinaryStore(
			f.config.Cloudinary.CloudName,
			f.config.Cloudinary.APIKey,
			f.config.Cloudinary.APISecret,
			f.config.Cloudinary.Folder,
		)
		if err != nil {
			util.Warn("Cloudinary initialization failed - avatar uploads disabled", util.ErrorField(err))
		} else {
			f.blobs = blobs
		}
	}

	f.events = audit.NewPublisher(f.kafkaProducer, f.config.Kafka.AuditTopic, util.Get())

	demoExpose := f.config.SMS.DemoExpose
	f.authSvc = service.NewAuthService(f.kv, f.notifier, f.events, util.Get(), demoExpose)
	f.accounts = service.NewAccountService(f.kv, f.blobs, f.notifier, f.events, util.Get(), demoExpose)
}

// Router builds the HTTP router over the wired handlers.
func (f *Factory) Router() chi.Router {
	authHandler := handler.NewAuthHandler(f.authSvc, util.Get())
	userHandler := handler.NewUserHandler(f.accounts, util.Get())
	return handler.NewRouter(authHandler, userHandler, f.kv, util.Get())
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) KV() store.KV {
	return f.kv
}

func (f *Factory) AuthService() *service.AuthService {
	return f.authSvc
}

func (f *Factory) AccountService() *service.AccountService {
	return f.accounts
}

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}
	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}
		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}
