package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	jRPC "github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/rwabridge/bridgenode/bridge"
	bridgenodeCommon "github.com/rwabridge/bridgenode/common"
	"github.com/rwabridge/bridgenode/config"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/registry"
	"github.com/rwabridge/bridgenode/rpc"
	"github.com/rwabridge/bridgenode/version"
	"github.com/urfave/cli/v2"
)

func RunCmd(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}

	log.Init(c.Log)

	if c.Log.Environment == log.EnvironmentDevelopment {
		version.PrintVersion(os.Stdout)
		log.Info("Starting application")
	} else if c.Log.Environment == log.EnvironmentProduction {
		logVersion()
	}

	components := cliCtx.StringSlice(config.FlagComponents)
	log.Infof("running components %v for network %d", components, c.Common.NetworkID)
	events := bridge.NewBroadcaster()
	// both sides share the in-process registry, production deployments plug
	// their chain specific registries here
	reg := registry.NewMemory()

	source := runBridgeSourceIfNeeded(components, c.BridgeSource, reg, events)
	destination := runBridgeDestinationIfNeeded(components, c.BridgeDestination, reg, events)

	for _, component := range components {
		if component == bridgenodeCommon.RPC {
			server := createRPC(c.RPC, source, destination)
			go func() {
				if err := server.Start(); err != nil {
					log.Fatal(err)
				}
			}()
		}
	}

	waitSignal(nil)

	return nil
}

func runBridgeSourceIfNeeded(
	components []string,
	cfg bridge.SourceConfig,
	reg *registry.Memory,
	events *bridge.Broadcaster,
) *bridge.Source {
	if !isNeeded([]string{bridgenodeCommon.BRIDGE_SOURCE}, components) {
		return nil
	}
	source, err := bridge.NewSource(cfg, reg, events)
	if err != nil {
		log.Fatalf("error creating bridge source: %s", err)
	}
	return source
}

func runBridgeDestinationIfNeeded(
	components []string,
	cfg bridge.DestinationConfig,
	reg *registry.Memory,
	events *bridge.Broadcaster,
) *bridge.Destination {
	if !isNeeded([]string{bridgenodeCommon.BRIDGE_DESTINATION}, components) {
		return nil
	}
	destination, err := bridge.NewDestination(cfg, reg, events)
	if err != nil {
		log.Fatalf("error creating bridge destination: %s", err)
	}
	return destination
}

func createRPC(cfg jRPC.Config, source *bridge.Source, destination *bridge.Destination) *jRPC.Server {
	logger := log.WithFields("module", bridgenodeCommon.RPC)
	// interfaces hold nil pointers unless guarded, the endpoints check for nil
	var sourcer rpc.Sourcer
	if source != nil {
		sourcer = source
	}
	var destinationer rpc.Destinationer
	if destination != nil {
		destinationer = destination
	}
	services := []jRPC.Service{
		{
			Name: rpc.BRIDGE,
			Service: rpc.NewBridgeEndpoints(
				logger,
				cfg.WriteTimeout.Duration,
				cfg.ReadTimeout.Duration,
				sourcer,
				destinationer,
			),
		},
		{
			Name: rpc.ADMIN,
			Service: rpc.NewAdminEndpoints(
				logger,
				cfg.WriteTimeout.Duration,
				sourcer,
				destinationer,
			),
		},
	}

	return jRPC.NewServer(cfg, services, jRPC.WithLogger(logger.GetSugaredLogger()))
}

func isNeeded(casesWhereNeeded, actualCases []string) bool {
	for _, caseWhereNeeded := range casesWhereNeeded {
		for _, actualCase := range actualCases {
			if actualCase == caseWhereNeeded {
				return true
			}
		}
	}
	return false
}

func logVersion() {
	log.Infow("Starting application",
		// version is already logged by default
		"gitRevision", version.GitRev,
		"gitBranch", version.GitBranch,
		"goVersion", runtime.Version(),
		"built", version.BuildDate,
		"os/arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	)
}

func waitSignal(cancelFuncs []context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	for sig := range signals {
		switch sig {
		case os.Interrupt, os.Kill:
			log.Info("terminating application gracefully...")

			exitStatus := 0
			for _, cancel := range cancelFuncs {
				cancel()
			}
			os.Exit(exitStatus)
		}
	}
}
