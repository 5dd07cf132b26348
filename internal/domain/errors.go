package domain

import "errors"

// Error taxonomy shared across the pipeline. Concrete errors wrap one of these.
var (
	ErrTransientNetwork  = errors.New("transient network error")
	ErrTransportSecurity = errors.New("transport security error")
	ErrStructuralParse   = errors.New("page structure mismatch")
	ErrIntegrity         = errors.New("attachment integrity error")
	ErrStore             = errors.New("checkpoint store error")
	ErrDelivery          = errors.New("notification delivery error")
	ErrPermanentFetch    = errors.New("permanent fetch error")
)
