package escrow

type Config struct {
	// DBPath path of the escrow DB
	DBPath string `mapstructure:"DBPath"`
}
