package reporting

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/provider"
)

// NamedSink pairs a reporting sink with a name used in errors
type NamedSink struct {
	Name string
	Sink provider.ReportingSink
}

// MultiSink publishes to every sink; one failing sink does not stop the others
type MultiSink struct {
	sinks []NamedSink
}

var _ provider.ReportingSink = (*MultiSink)(nil)

// NewMultiSink fans out to sinks in order
func NewMultiSink(sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Len reports the number of sinks
func (m *MultiSink) Len() int { return len(m.sinks) }

// Publish returns the joined errors of every failing sink
func (m *MultiSink) Publish(ctx context.Context, cycleID string, ranked []models.Recommendation) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Publish(ctx, cycleID, ranked); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
