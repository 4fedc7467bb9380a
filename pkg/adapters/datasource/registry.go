package datasource

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// AdapterInfo describes a registered frame source.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "sqlserver", "csv"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// Factory builds a loader from a generic config map.
type Factory func(ctx context.Context, config map[string]any, logger *zap.Logger) (FrameLoader, error)

// AdapterRegistration pairs adapter info with its factory.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory Factory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	slices.SortFunc(result, func(a, b AdapterInfo) int { return cmp.Compare(a.Type, b.Type) })
	return result
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}

// NewLoader builds a loader of the given type.
func NewLoader(ctx context.Context, dsType string, config map[string]any, logger *zap.Logger) (FrameLoader, error) {
	registryMu.RLock()
	reg, ok := registry[dsType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", dsType)
	}
	return reg.Factory(ctx, config, logger)
}
