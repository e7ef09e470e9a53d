package httpadapter

import (
	"net/http"

	"github.com/kirillkom/image-to-excel/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoImageSelected),
		domain.IsKind(err, domain.ErrConversionInFlight),
		domain.IsKind(err, domain.ErrConversionSuperseded),
		domain.IsKind(err, domain.ErrExport):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrService), domain.IsKind(err, domain.ErrFormat):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": domain.UserMessage(err)})
}
