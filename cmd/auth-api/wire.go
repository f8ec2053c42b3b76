package main

import (
	"fmt"

	tokens "github.com/NordCoder/Homeroom/internal/auth"
	config "github.com/NordCoder/Homeroom/internal/config/auth-api"
	"github.com/NordCoder/Homeroom/internal/obs/retry"
	"github.com/NordCoder/Homeroom/internal/outbox"
	"github.com/NordCoder/Homeroom/internal/repository/kafka"
	pg "github.com/NordCoder/Homeroom/internal/repository/postgres"
	redisrepo "github.com/NordCoder/Homeroom/internal/repository/redis"
	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"

	"go.uber.org/zap"
)

type services struct {
	sessions *auth.Sessions
	resets   *auth.PasswordReset
	verify   *auth.EmailVerification
	gw       *auth.Gateway
	limiter  auth.RateLimiter
	outbox   *outbox.Runner

	closers []func() error
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func wire(cfg *config.Config, logger *zap.Logger, db *pg.DB) (*services, error) {
	principals := pg.NewPrincipalRepo(db)
	refresh := pg.NewRefreshTokenRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)
	tx := pg.NewTransactor(db, logger)
	mail := outbox.NewMailQueue(outboxRepo)
	svcCfg := cfg.ServiceConfig()

	codec, err := tokens.NewCodec([]byte(cfg.Auth.JWTSecret), nil)
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	creds, err := auth.NewCredentials(principals, tokens.NewPasswordHasher(cfg.Auth.BcryptCost), svcCfg)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	s := &services{
		sessions: auth.NewSessions(logger, creds, codec, refresh, svcCfg),
		resets:   auth.NewPasswordReset(logger, creds, refresh, tx, mail, svcCfg),
		verify:   auth.NewEmailVerification(logger, creds, tx, mail, svcCfg),
		gw:       auth.NewGateway(logger, codec, creds),
	}

	if cfg.RateLimit.Enable {
		rc := redisrepo.NewClient(cfg.Redis)
		s.limiter = redisrepo.NewFixedWindowLimiter(rc, "homeroom_rl")
		s.closers = append(s.closers, rc.Close)
		logger.Info("rate limiting enabled", zap.String("redis", cfg.Redis.Addr), zap.Int("rules", len(cfg.RateLimit.Rules)))
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	s.closers = append(s.closers, producer.Close)
	dispatch := outbox.MakeGlobalOutboxHandler(kafka.NewMailEventsKafka(producer), retry.DefaultKafkaPolicy(logger))
	s.outbox = outbox.NewOutboxRunner(logger, outboxRepo, dispatch, cfg.Outbox)

	return s, nil
}
