package quorum

type Config struct {
	// DBPath path of the approvals DB
	DBPath string `mapstructure:"DBPath"`
	// RequiredApprovals is the amount of distinct relayers that must attest a
	// transfer before it is processed
	RequiredApprovals uint32 `mapstructure:"RequiredApprovals"`
}
