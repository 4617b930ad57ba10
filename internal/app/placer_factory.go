package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/opr/internal/domain"
	"github.com/vladislavdragonenkov/opr/internal/service/placement"
)

// createPlacer собирает цепочку Placer по конфигурации: базовый use case,
// retry поверх транзиентных отказов хранилища и circuit breaker снаружи.
// В dry-run режиме возвращается noop без обращения к хранилищу.
func createPlacer(cfg Config, repo domain.OrderRepository, logger *log.Entry) placement.Placer {
	if cfg.DryRun {
		logger.Warn("dry-run mode: orders will not be persisted")
		return placement.NewNoop(log.WithField("component", "placement-noop"))
	}

	var placer placement.Placer = placement.NewService(repo, log.WithField("component", "placement"))

	if cfg.PlaceRetryAttempts > 1 {
		retryCfg := placement.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.PlaceRetryAttempts
		if cfg.PlaceRetryInitialDelay > 0 {
			retryCfg.InitialDelay = cfg.PlaceRetryInitialDelay
		}
		if cfg.PlaceRetryMaxDelay > 0 {
			retryCfg.MaxDelay = cfg.PlaceRetryMaxDelay
		}
		placer = placement.NewRetryablePlacer(placer, retryCfg, log.WithField("component", "retryable-placer"))
	}

	if cfg.BreakerMaxFailures > 0 {
		breaker := placement.NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout, logger)
		placer = placement.NewCircuitBreakerPlacer(placer, breaker, log.WithField("component", "breaker-placer"))
	}

	return placer
}
