package cmdapp

import (
	"github.com/rs/zerolog"

	"github.com/charterops/tripkeeper"
	"github.com/charterops/tripkeeper/pkg/logging"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function
// field. If a function field is nil, the method returns a default value.
type Mock struct {
	KeeperFunc            func() (tripkeeper.Keeper, error)
	KeeperWithOptionsFunc func(...tripkeeper.Option) (tripkeeper.Keeper, error)
	LoggerFunc            func() *zerolog.Logger
	OutputFormatFunc      func() string
	VersionFunc           func() string
}

// Keeper implements Application.
func (m *Mock) Keeper() (tripkeeper.Keeper, error) {
	if m.KeeperFunc != nil {
		return m.KeeperFunc()
	}
	return nil, nil
}

// KeeperWithOptions implements Application.
func (m *Mock) KeeperWithOptions(opts ...tripkeeper.Option) (tripkeeper.Keeper, error) {
	if m.KeeperWithOptionsFunc != nil {
		return m.KeeperWithOptionsFunc(opts...)
	}
	return nil, nil
}

// Logger implements Application.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	return logging.NewNopLogger()
}

// OutputFormat implements Application.
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "text"
}

// Version implements Application.
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "test"
}

var _ Application = (*Mock)(nil)
