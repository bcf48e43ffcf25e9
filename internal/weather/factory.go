package weather

import (
	"fmt"

	"github.com/bassista/go_weather/internal/config"
)

// NewClientFromConfig creates a Client based on the configured client type.
// "openmeteo" (default) talks to the real API; "memory" stays offline.
func NewClientFromConfig(cfg config.WeatherConfig) (Client, error) {
	switch cfg.ClientType {
	case config.ClientTypeMemory:
		return NewMemoryClient(cfg.Timezone), nil
	case config.ClientTypeOpenMeteo, "":
		return NewOpenMeteoClient(cfg.BaseURL, cfg.Timezone, WithTimeout(cfg.UpstreamTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown weather client type: %s (supported: %s, %s)", cfg.ClientType, config.ClientTypeOpenMeteo, config.ClientTypeMemory)
	}
}
