package cafeapi

import (
	"errors"
	"net/http"

	"github.com/noah-isme/cafe-cart/internal/common"
	"github.com/noah-isme/cafe-cart/internal/resilience"
)

// ToAppError maps a café API failure onto the gateway's error response.
// Rejections keep the upstream status; outages become 502, or 503 while the
// breaker is open. Errors that are not API errors pass through unchanged.
func ToAppError(err error) error {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return err
	}
	switch {
	case apiErr.ClientFault():
		return &common.AppError{Code: "UPSTREAM_ERROR", Message: apiErr.Detail, HTTPStatus: apiErr.Status, Err: apiErr}
	case errors.Is(apiErr, resilience.ErrOpenCircuit):
		return common.NewAppError("UPSTREAM_UNAVAILABLE", "café service temporarily unavailable", http.StatusServiceUnavailable, apiErr)
	default:
		return common.NewAppError("UPSTREAM_ERROR", "café service error", http.StatusBadGateway, apiErr)
	}
}
