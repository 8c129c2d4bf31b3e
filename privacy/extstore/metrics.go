package extstore

import "github.com/ethereum/go-ethereum/metrics"

var (
	creatorWriteCounter    = metrics.NewRegisteredCounter("privacy/extstore/creator/writes", nil)
	privateSetWriteCounter = metrics.NewRegisteredCounter("privacy/extstore/privateset/writes", nil)
	commitFailureCounter   = metrics.NewRegisteredCounter("privacy/extstore/commit/failures", nil)
	commitSizeMeter        = metrics.NewRegisteredMeter("privacy/extstore/commit/size", nil)
)
