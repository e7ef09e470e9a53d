package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
	"github.com/kirillkom/image-to-excel/internal/infrastructure/resilience"
)

// countsAsBreakerFailure decides which failures signal an unhealthy service.
func countsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if statusCode, ok := statusCodeOf(err); ok {
		return isServerSideStatus(statusCode)
	}
	if domain.IsKind(err, domain.ErrFormat) || domain.IsKind(err, domain.ErrInvalidInput) {
		return false
	}
	return true
}

func wrapTransportIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTransport, "convert image", err)
	}
	if domain.IsKind(err, domain.ErrTransport) ||
		domain.IsKind(err, domain.ErrService) ||
		domain.IsKind(err, domain.ErrFormat) ||
		domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}
	return domain.WrapError(domain.ErrTransport, "convert image", err)
}

func isServerSideStatus(statusCode int) bool {
	switch {
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return true
	case statusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
