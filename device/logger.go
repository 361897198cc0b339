package device

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/extsync/handle"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the device package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the device package's logger.
// This must be called before any devices are created.
func SetLogger(l *zap.Logger) {
	logger = l
}

// tableLogger reports table lifecycle events at debug level.
type tableLogger struct {
	log    *zap.Logger
	object string
}

func (l *tableLogger) OnHandleEvent(e handle.Event) {
	l.log.Debug("object "+e.Type.String(),
		zap.String("object", l.object),
		zap.Uint32("name", uint32(e.Name)))
}
