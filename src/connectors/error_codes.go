package connectors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrNetwork is a transport failure: timeout, refused connection, DNS.
	ErrNetwork = errors.New("network error")
	// ErrAPI is an error answer from the exchange: rate limit, auth, bad symbol, outage.
	ErrAPI = errors.New("exchange api error")
	// ErrRejected is an order the exchange refused to execute.
	ErrRejected = errors.New("order rejected")
)

// BinanceRejectCodes are error codes meaning the order itself was refused.
var BinanceRejectCodes = map[int]string{
	-1013: "INVALID_QUANTITY",        // filter failure: LOT_SIZE, MIN_NOTIONAL...
	-1100: "ILLEGAL_CHARS",           // illegal characters in a parameter
	-1111: "BAD_PRECISION",           // precision over the maximum for this asset
	-1121: "BAD_SYMBOL",              // invalid symbol
	-2010: "NEW_ORDER_REJECTED",      // e.g. insufficient balance
	-2019: "MARGIN_INSUFFICIENT",     // not enough margin
	-2026: "ORDER_ARCHIVED",          // order was archived
	-1106: "PARAM_NOT_REQUIRED",      // parameter sent when not required
	-1116: "INVALID_ORDER_TYPE",      // invalid order type
	-1117: "INVALID_SIDE",            // invalid side
	-1102: "MANDATORY_PARAM_MISSING", // mandatory parameter missing or malformed
}

// APIError is a decoded Binance error answer.
type APIError struct {
	Status int
	Code   int
	Msg    string
	kind   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance HTTP %d code %d: %s", e.Status, e.Code, e.Msg)
}

func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(status, code int, msg string, order bool) *APIError {
	kind := ErrAPI
	if _, ok := BinanceRejectCodes[code]; ok && order {
		kind = ErrRejected
	}
	return &APIError{Status: status, Code: code, Msg: msg, kind: kind}
}

// classifyTransportErr maps errors from goex and net/http onto the taxonomy.
// Anything that is not a transport failure is treated as an API answer.
func classifyTransportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrAPI) || errors.Is(err, ErrRejected) {
		return err
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrAPI, err)
}

// IsRetryable reports whether a fetch may be attempted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrAPI)
}
