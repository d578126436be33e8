package httpadapter

import (
	"net/http"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidTenant):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrNotBound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEmbeddingFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
