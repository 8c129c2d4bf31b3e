package privacy

import "github.com/ethereum/go-ethereum/metrics"

var (
	payloadTimer          = metrics.NewRegisteredTimer("privacy/payload", nil)
	blindedCounter        = metrics.NewRegisteredCounter("privacy/blinded", nil)
	privateSetAppendMeter = metrics.NewRegisteredMeter("privacy/privateset/append", nil)
)
