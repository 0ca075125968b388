package http

type Config struct {
	Port uint `mapstructure:"port"`
	// LoginRatePerMinute caps login attempts per client IP.
	LoginRatePerMinute int `mapstructure:"login_rate_per_minute"`
}
