package common

// Config holds the configuration shared by all the components
type Config struct {
	// NetworkID is the chain id of the network this node is attached to
	NetworkID uint32 `mapstructure:"NetworkID"`
}
