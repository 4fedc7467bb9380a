package csvfile

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "csv",
			DisplayName: "CSV files",
			Description: "A CSV file, or a directory with one <table>.csv per table",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.FrameLoader, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewLoader(cfg, logger)
		},
	})
}
