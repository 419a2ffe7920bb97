package ring

import "go.uber.org/zap"

type config struct {
	logger *zap.Logger
}

// Option configures a Ring at construction time.
type Option func(*config)

// WithLogger sets the structured logger stored on the Ring. No Ring
// operation writes to it: ring-full/ring-empty outcomes and
// construction or programming errors are reported to the caller only.
// Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultConfig() *config {
	return &config{logger: zap.NewNop()}
}
