package threads

import "fmt"

// Option is a function that configures a Service.
// Used with the Options Pattern for flexible service construction.
//
// Example:
//
//	svc, err := threads.NewService(
//	    threads.WithRepository(repo),
//	    threads.WithLogger(logger),
//	    threads.WithHiddenDeleted(), // optional
//	)
type Option func(*Service) error

// WithRepository sets the required message repository dependency.
//
// This is a required option for NewService.
func WithRepository(repo MessageRepository) Option {
	return func(s *Service) error {
		if repo == nil {
			return fmt.Errorf("repo cannot be nil")
		}
		s.repo = repo
		return nil
	}
}

// WithLogger sets the logger instance for the service.
// Logger is required and must not be nil.
//
// This is a required option for NewService.
//
// Use NoopLogger for silent operation or implement Logger interface
// to integrate with your logging system (zap, logrus, etc.).
func WithLogger(logger Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithHiddenDeleted excludes soft-deleted messages from thread listings.
//
// This is an optional configuration. By default deleted messages stay in the
// listing and the presentation layer decides how to redact their content;
// deletion never removes a message from its reply tree either way.
func WithHiddenDeleted() Option {
	return func(s *Service) error {
		s.hideDeleted = true
		return nil
	}
}
