package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-collection/models"
)

// DeliveryFailure reports that neither channel accepted the payload. The
// caller still holds the result and may retry delivery; Payload carries the
// encoded bytes so they can be rescued without re-encoding.
type DeliveryFailure struct {
	Primary     string
	PrimaryErr  error
	Fallback    string
	FallbackErr error
	Payload     []byte
}

func (e *DeliveryFailure) Error() string {
	if e.Fallback == "" {
		return fmt.Sprintf("delivery failed: %s: %v", e.Primary, e.PrimaryErr)
	}
	return fmt.Sprintf("delivery failed: %s: %v; %s: %v", e.Primary, e.PrimaryErr, e.Fallback, e.FallbackErr)
}

func (e *DeliveryFailure) Unwrap() []error {
	var errs []error
	if e.PrimaryErr != nil {
		errs = append(errs, e.PrimaryErr)
	}
	if e.FallbackErr != nil {
		errs = append(errs, e.FallbackErr)
	}
	return errs
}

// Sink delivers the payload through a primary channel and, if that fails, a
// fallback channel.
type Sink struct {
	primary  OutputChannel
	fallback OutputChannel
}

// NewSink builds a sink. fallback may be nil.
func NewSink(primary, fallback OutputChannel) *Sink {
	return &Sink{primary: primary, fallback: fallback}
}

// Deliver encodes result once and returns the name of the channel that took it.
func (s *Sink) Deliver(ctx context.Context, result *models.CrawlResult) (string, error) {
	payload, err := Encode(result)
	if err != nil {
		return "", err
	}

	primaryErr := s.primary.Deliver(ctx, payload)
	if primaryErr == nil {
		return s.primary.Name(), nil
	}
	failure := &DeliveryFailure{Primary: s.primary.Name(), PrimaryErr: primaryErr, Payload: payload}
	if s.fallback == nil {
		return "", failure
	}

	slog.Warn("primary delivery failed, using fallback",
		slog.String("primary", s.primary.Name()),
		slog.String("fallback", s.fallback.Name()),
		slog.Any("error", primaryErr),
	)

	failure.Fallback = s.fallback.Name()
	if failure.FallbackErr = s.fallback.Deliver(ctx, payload); failure.FallbackErr != nil {
		return "", failure
	}
	return s.fallback.Name(), nil
}
