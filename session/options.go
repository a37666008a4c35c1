package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/jsbridge/config"
	"github.com/wippyai/jsbridge/host"
	"github.com/wippyai/jsbridge/source"
)

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the session configuration.
func WithConfig(cfg config.Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger. Script output goes to its "script" child.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithInvoker replaces the reflection invoker.
func WithInvoker(inv host.Invoker) Option {
	return func(s *Session) {
		if inv != nil {
			s.inv = inv
		}
	}
}

// WithLoader sets the loader used by RunFile.
func WithLoader(l source.Loader) Option {
	return func(s *Session) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithContext sets the context passed to host methods.
func WithContext(ctx context.Context) Option {
	return func(s *Session) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}
