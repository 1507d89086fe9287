package config

import (
	"flag"
	"strings"
)

// BindFlags registers the command line flags on fs, writing into cfg. The
// current cfg values become the flag defaults, so flags override file and
// environment settings only when given. Short and long names share a target.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.LifetimeSeconds, "lifetime", cfg.LifetimeSeconds, "how long each killmail counts towards the display, in seconds")
	fs.IntVar(&cfg.LifetimeSeconds, "l", cfg.LifetimeSeconds, "shorthand for --lifetime")
	fs.BoolVar(&cfg.Fresh, "fresh", cfg.Fresh, "remove all stored killmails on startup")
	fs.BoolVar(&cfg.Fresh, "f", cfg.Fresh, "shorthand for --fresh")
	fs.Int64Var(&cfg.CorporationID, "corporation", cfg.CorporationID, "corporation id to track")
	fs.Int64Var(&cfg.CorporationID, "c", cfg.CorporationID, "shorthand for --corporation")
	fs.Int64Var(&cfg.AllianceID, "alliance", cfg.AllianceID, "alliance id to track (ignored when a corporation is given)")
	fs.Int64Var(&cfg.AllianceID, "a", cfg.AllianceID, "shorthand for --alliance")
	fs.StringVar(&cfg.MQTTHost, "mqtthost", cfg.MQTTHost, "mqtt broker hostname")
	fs.IntVar(&cfg.MQTTPort, "mqttport", cfg.MQTTPort, "mqtt broker port")
	fs.StringVar(&cfg.RedisHost, "redishost", cfg.RedisHost, "redis/valkey hostname")
	fs.IntVar(&cfg.RedisPort, "redisport", cfg.RedisPort, "redis/valkey port")
	fs.IntVar(&cfg.HTTPPort, "http", cfg.HTTPPort, "status server port, 0 disables it")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.String("config", "", "path to the yaml config file (read before other flags)")
}

// ConfigPath returns the value of -config/--config in args, or fallback when
// the flag is absent. It runs before the config is loaded, so it cannot use
// the FlagSet.
func ConfigPath(args []string, fallback string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return fallback
}
