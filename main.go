package main

import (
	"log"
	"os"

	"github.com/rwabridge/bridgenode/cmd"
	bridgenodeCommon "github.com/rwabridge/bridgenode/common"
	"github.com/rwabridge/bridgenode/config"
	"github.com/rwabridge/bridgenode/version"
	"github.com/urfave/cli/v2"
)

const appName = "bridgenode"

var (
	configFileFlag = cli.StringSliceFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration file(s)",
		Required: false,
	}
	componentsFlag = cli.StringSliceFlag{
		Name:     config.FlagComponents,
		Aliases:  []string{"co"},
		Usage:    "List of components to run",
		Required: false,
		Value: cli.NewStringSlice(
			bridgenodeCommon.BRIDGE_SOURCE, bridgenodeCommon.BRIDGE_DESTINATION, bridgenodeCommon.RPC,
		),
	}
	saveConfigFlag = cli.StringFlag{
		Name:     config.FlagSaveConfigPath,
		Aliases:  []string{"s"},
		Usage:    "Save the default configuration into the indicated path",
		Required: false,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = version.Version

	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  cmd.VersionCmd,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the bridge node",
			Action:  cmd.RunCmd,
			Flags:   []cli.Flag{&configFileFlag, &componentsFlag, &saveConfigFlag},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
