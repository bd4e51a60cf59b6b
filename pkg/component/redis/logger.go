package redis

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// clientLogger routes go-redis internal messages (reconnects, pool
// warnings) into the service log.
type clientLogger struct{}

func (clientLogger) Printf(ctx context.Context, format string, v ...interface{}) {
	logger.Global().WithCtx(ctx).Warnw(fmt.Sprintf(format, v...), "component", "redis")
}

func init() {
	goredis.SetLogger(clientLogger{})
}
