package marketdata

import (
	"context"

	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/source"
	"go.uber.org/zap"
)

// Session is an open connection to a bar source. Open it with OpenSession and release it with
// Close, typically deferred right after a successful open.
type Session struct {
	source source.Source
	logger *logger.Logger
	open   bool
}

// OpenSession initializes src. Any initialization failure is returned as *errors.ConnectionError.
func OpenSession(ctx context.Context, src source.Source, log *logger.Logger) (*Session, error) {
	if src == nil {
		return nil, errors.NewConnectionError("unknown", "no source configured", nil)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if err := src.Initialize(ctx); err != nil {
		log.Error("Failed to initialize source", zap.String("source", src.Name()), zap.Error(err))

		if errors.IsConnectionError(err) {
			return nil, err
		}

		return nil, errors.NewConnectionError(src.Name(), "error initializing source", err)
	}

	log.Debug("Source session opened", zap.String("source", src.Name()))

	return &Session{
		source: src,
		logger: log,
		open:   true,
	}, nil
}

// IsOpen reports whether the session can still be used for fetching.
func (s *Session) IsOpen() bool {
	return s != nil && s.open
}

// Source returns the underlying source.
func (s *Session) Source() source.Source {
	if s == nil {
		return nil
	}

	return s.source
}

// Close shuts the source down. Closing a nil, never-opened or already closed session is a no-op.
func (s *Session) Close() error {
	if !s.IsOpen() {
		return nil
	}

	s.open = false

	if err := s.source.Shutdown(); err != nil {
		return err
	}

	s.logger.Debug("Source session closed", zap.String("source", s.source.Name()))

	return nil
}
