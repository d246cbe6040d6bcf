package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[Common]
NetworkID = 1

[BridgeSource]
DBPath = "/tmp/bridgenode/bridge.sqlite"
ChainID = 1

	[BridgeSource.RateLimiter]
	Window = "1h"
	MaxPerWindow = 10

	[BridgeSource.Escrow]
	DBPath = "/tmp/bridgenode/escrow.sqlite"

[BridgeDestination]
ChainID = 84532
Relayers = []

	[BridgeDestination.Quorum]
	DBPath = "/tmp/bridgenode/quorum.sqlite"
	RequiredApprovals = 2

	[BridgeDestination.Minter]
	DBPath = "/tmp/bridgenode/minter.sqlite"

[RPC]
Host = "0.0.0.0"
Port = 5576
ReadTimeout = "2s"
WriteTimeout = "2s"
MaxRequestsPerIPAndSecond = 500
`
