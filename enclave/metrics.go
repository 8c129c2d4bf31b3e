package enclave

import "github.com/ethereum/go-ethereum/metrics"

var (
	requestTimer      = metrics.NewRegisteredTimer("enclave/request", nil)
	requestErrorMeter = metrics.NewRegisteredMeter("enclave/request/errors", nil)
)
