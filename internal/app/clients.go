package app

import (
	"fmt"

	"github.com/yungbote/coursework-backend/internal/platform/gcp"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
	"github.com/yungbote/coursework-backend/internal/realtime/bus"
)

type Clients struct {
	LLM       openai.Factory
	Materials gcp.MaterialStore
	// CancelBus is nil when REDIS_ADDR is unset; chat cancels stay in-process.
	CancelBus bus.CancelBus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var cancelBus bus.CancelBus
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisCancelBus(log, bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisCancelChannel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis cancel bus: %w", err)
		}
		cancelBus = b
	}

	// Gcs
	storeCfg, err := gcp.StoreConfigFromEnv()
	if err != nil {
		closeBus(cancelBus)
		return Clients{}, fmt.Errorf("object storage config: %w", err)
	}
	store, err := gcp.NewMaterialStore(log, storeCfg)
	if err != nil {
		closeBus(cancelBus)
		return Clients{}, fmt.Errorf("init material store: %w", err)
	}

	// Openai
	llm, err := openai.NewFactory(log, openai.ConfigFromEnv())
	if err != nil {
		closeBus(cancelBus)
		return Clients{}, fmt.Errorf("init openai factory: %w", err)
	}

	return Clients{LLM: llm, Materials: store, CancelBus: cancelBus}, nil
}

func closeBus(b bus.CancelBus) {
	if b != nil {
		_ = b.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	closeBus(c.CancelBus)
}
