package transport

import "errors"

// Transport routing and availability errors.
var (
	// ErrProxyUnavailable is returned when the anonymity proxy could
	// not be established. The download scheduler treats this as
	// non-retryable: retrying cannot help until the proxy comes back,
	// so candidates requiring it fail fast.
	ErrProxyUnavailable = errors.New("anonymity proxy unavailable")

	// ErrAnonymityDisabled is returned when a host requires the
	// anonymity transport but it was not enabled in configuration.
	ErrAnonymityDisabled = errors.New("host requires anonymity transport, which is disabled")

	// ErrInvalidOnionAddress is returned for a v3 onion host that fails
	// checksum validation. No traffic is spent on addresses Tor itself
	// would reject.
	ErrInvalidOnionAddress = errors.New("invalid v3 onion address")
)
