package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the name of the JSON configuration file.
const ConfigFileName = "routecompare.cfg.json"

// RoutingConfig holds routing service client settings
type RoutingConfig struct {
	Endpoint  string        `json:"endpoint" mapstructure:"endpoint"`
	Costing   string        `json:"costing" mapstructure:"costing"`
	Units     string        `json:"units" mapstructure:"units"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	Precision int           `json:"precision" mapstructure:"precision"`
}

// PlaybackConfig holds playback timing settings
type PlaybackConfig struct {
	FrameInterval time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
	Speed         float64       `json:"speed" mapstructure:"speed"`
	IntervalKm    float64       `json:"intervalKm" mapstructure:"intervalKm"`
}

// ViewportConfig holds map fitting settings
type ViewportConfig struct {
	WidthPx   int `json:"widthPx" mapstructure:"widthPx"`
	HeightPx  int `json:"heightPx" mapstructure:"heightPx"`
	PaddingPx int `json:"paddingPx" mapstructure:"paddingPx"`
	MaxZoom   int `json:"maxZoom" mapstructure:"maxZoom"`
}

// StorageConfig selects the route shape cache backend
type StorageConfig struct {
	Type string `json:"type" mapstructure:"type"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB telemetry settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// GraylogConfig holds GELF log shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// ServerConfig holds the HTTP host settings
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; callers that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("routing.endpoint", "http://127.0.0.1:8002/route")
	viper.SetDefault("routing.costing", "auto")
	viper.SetDefault("routing.units", "km")
	viper.SetDefault("routing.timeout", "15s")
	viper.SetDefault("routing.precision", 6)

	viper.SetDefault("playback.frameInterval", "16ms")
	viper.SetDefault("playback.speed", 1.0)
	viper.SetDefault("playback.intervalKm", 0.3)

	viper.SetDefault("viewport.widthPx", 800)
	viper.SetDefault("viewport.heightPx", 600)
	viper.SetDefault("viewport.paddingPx", 60)
	viper.SetDefault("viewport.maxZoom", 12)

	viper.SetDefault("storage.type", "memory")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "routecompare")
	viper.SetDefault("influx.bucket", "route_metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "routecompare")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("server.addr", ":8080")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetRoutingConfig returns the routing service settings.
func GetRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Endpoint:  viper.GetString("routing.endpoint"),
		Costing:   viper.GetString("routing.costing"),
		Units:     viper.GetString("routing.units"),
		Timeout:   viper.GetDuration("routing.timeout"),
		Precision: viper.GetInt("routing.precision"),
	}
}

// GetPlaybackConfig returns the playback settings.
func GetPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		FrameInterval: viper.GetDuration("playback.frameInterval"),
		Speed:         viper.GetFloat64("playback.speed"),
		IntervalKm:    viper.GetFloat64("playback.intervalKm"),
	}
}

// GetViewportConfig returns the map fitting settings.
func GetViewportConfig() ViewportConfig {
	return ViewportConfig{
		WidthPx:   viper.GetInt("viewport.widthPx"),
		HeightPx:  viper.GetInt("viewport.heightPx"),
		PaddingPx: viper.GetInt("viewport.paddingPx"),
		MaxZoom:   viper.GetInt("viewport.maxZoom"),
	}
}

// GetStorageConfig returns the route cache backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB telemetry settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF log shipping settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetServerConfig returns the HTTP host settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Addr: viper.GetString("server.addr"),
	}
}
