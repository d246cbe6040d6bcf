package common

const (
	// BRIDGE_SOURCE name to identify the source-side bridge coordinator component
	BRIDGE_SOURCE = "bridge-source" //nolint:stylecheck
	// BRIDGE_DESTINATION name to identify the destination-side bridge coordinator component
	BRIDGE_DESTINATION = "bridge-destination" //nolint:stylecheck
	// RPC name to identify the rpc component (implies bridge-source and bridge-destination)
	RPC = "rpc"
)
