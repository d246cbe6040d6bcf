package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	jRPC "github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/mitchellh/mapstructure"
	"github.com/rwabridge/bridgenode/bridge"
	"github.com/rwabridge/bridgenode/common"
	"github.com/rwabridge/bridgenode/log"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	// FlagCfg is the flag for cfg.
	FlagCfg = "cfg"
	// FlagComponents is the flag for components.
	FlagComponents = "components"
	// FlagSaveConfigPath is the flag to save the final configuration file
	FlagSaveConfigPath = "save-config-path"

	// EnvVarPrefix is the prefix of the env vars overriding config values,
	// example: BRIDGENODE_LOG_LEVEL=debug
	EnvVarPrefix = "BRIDGENODE"
	ConfigType   = "toml"
	// SaveConfigFileName is the name of the file written by FlagSaveConfigPath
	SaveConfigFileName = "bridgenode_config.toml"

	defaultCreationFilePermissions = os.FileMode(0600)
)

// Config represents the configuration of the entire bridge node.
// The file is TOML format.
type Config struct {
	// Configure Log level for all the services, allow also to store the logs in a file
	Log log.Config
	// Common Config that affects all the services
	Common common.Config
	// BridgeSource is the config of the source side of the bridge
	BridgeSource bridge.SourceConfig
	// BridgeDestination is the config of the destination side of the bridge
	BridgeDestination bridge.DestinationConfig
	// RPC is the config for the RPC server
	RPC jRPC.Config
}

// Default returns the default configuration
func Default() (*Config, error) {
	cfg := &Config{}
	if err := loadString(cfg, DefaultValues, ConfigType, false, EnvVarPrefix); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads the configuration: default values, overridden by the config
// files passed with FlagCfg, overridden by env vars
func Load(ctx *cli.Context) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	for _, configFilePath := range ctx.StringSlice(FlagCfg) {
		content, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s. Err: %w", configFilePath, err)
		}
		if err := loadString(cfg, string(content), ConfigType, true, EnvVarPrefix); err != nil {
			return nil, fmt.Errorf("error loading config file %s. Err: %w", configFilePath, err)
		}
	}
	if saveConfigPath := ctx.String(FlagSaveConfigPath); saveConfigPath != "" {
		fullPath := saveConfigPath + "/" + SaveConfigFileName
		if err := os.WriteFile(fullPath, []byte(DefaultValues), defaultCreationFilePermissions); err != nil {
			return nil, fmt.Errorf("error writing config file: %s. Err: %w", fullPath, err)
		}
	}
	return cfg, nil
}

func loadString(cfg *Config, configData string, configType string, allowEnvVars bool, envPrefix string) error {
	viper.SetConfigType(configType)
	if allowEnvVars {
		replacer := strings.NewReplacer(".", "_")
		viper.SetEnvKeyReplacer(replacer)
		viper.SetEnvPrefix(envPrefix)
		viper.AutomaticEnv()
	}
	err := viper.ReadConfig(bytes.NewBuffer([]byte(configData)))
	if err != nil {
		return err
	}
	decodeHooks := []viper.DecoderConfigOption{
		// this allows arrays to be decoded from env var separated by ",", example: MY_VAR="value1,value2,value3"
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(), mapstructure.StringToSliceHookFunc(","))),
	}
	return viper.Unmarshal(&cfg, decodeHooks...)
}
