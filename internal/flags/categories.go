package flags

import "github.com/urfave/cli/v2"

const (
	PrivacyCategory = "PRIVACY"
	EnclaveCategory = "ENCLAVE"
	APICategory     = "API"
	StorageCategory = "EXTENDED PRIVACY STORE"
	LoggingCategory = "LOGGING AND DEBUGGING"
	MetricsCategory = "METRICS AND STATS"
	MiscCategory    = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
