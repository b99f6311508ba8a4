package platforms

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// Registry holds one adapter per supported platform
type Registry struct {
	adapters map[models.Platform]interfaces.PlatformAdapter
}

// NewRegistry constructs the adapter set from configuration
func NewRegistry(config *common.Config, logger arbor.ILogger) *Registry {
	r := &Registry{adapters: make(map[models.Platform]interfaces.PlatformAdapter)}
	r.register(NewTikTokAdapter())
	r.register(NewInstagramAdapter())
	r.register(NewTwitterAdapter())
	r.register(NewYouTubeAdapter(&config.YouTube, logger))
	return r
}

func (r *Registry) register(adapter interfaces.PlatformAdapter) {
	r.adapters[adapter.Platform()] = adapter
}

// Get returns the adapter for a platform, or an error for unknown platforms
func (r *Registry) Get(platform models.Platform) (interfaces.PlatformAdapter, error) {
	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
	return adapter, nil
}
