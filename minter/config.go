package minter

type Config struct {
	// DBPath path of the minted assets DB
	DBPath string `mapstructure:"DBPath"`
}
