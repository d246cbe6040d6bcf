package ratelimiter

import (
	"github.com/rwabridge/bridgenode/config/types"
)

type Config struct {
	// Window is the duration of the rate limiting window
	Window types.Duration `mapstructure:"Window"`
	// MaxPerWindow is the maximum amount of assets a single sender can lock
	// within a window. 0 disables the rate limiter
	MaxPerWindow int `mapstructure:"MaxPerWindow"`
}
