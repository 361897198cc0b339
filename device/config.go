package device

import "go.uber.org/zap"

// Config holds configuration for device creation
type Config struct {
	// Logger overrides the package logger for this device.
	Logger *zap.Logger

	// Storage allocates buffer and texture storage from imported memory.
	// Without it the storage entry points report unsupported.
	Storage StorageAllocator

	// MaxNames bounds the name space of each table.
	// 0 means the full uint32 range.
	MaxNames uint32
}
