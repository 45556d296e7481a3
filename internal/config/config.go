package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "nail.cfg.json"

// MissileConfig holds the missile program's block names and flight constants.
type MissileConfig struct {
	GroupTag           string  `json:"groupTag" mapstructure:"groupTag"`
	ForwardThrustTag   string  `json:"forwardThrustTag" mapstructure:"forwardThrustTag"`
	StatusSurface      string  `json:"statusSurface" mapstructure:"statusSurface"`
	LaunchDistance     float64 `json:"launchDistance" mapstructure:"launchDistance"`
	MinAngle           float64 `json:"minAngle" mapstructure:"minAngle"`
	ControlCoefficient float64 `json:"controlCoefficient" mapstructure:"controlCoefficient"`
	MinTurnRate        float64 `json:"minTurnRate" mapstructure:"minTurnRate"`
	MaxTurnRate        float64 `json:"maxTurnRate" mapstructure:"maxTurnRate"`
}

// AimingConfig holds the aiming turret's block names and constants.
type AimingConfig struct {
	GroupTag           string  `json:"groupTag" mapstructure:"groupTag"`
	HorizontalRotorTag string  `json:"horizontalRotorTag" mapstructure:"horizontalRotorTag"`
	VerticalRotorTag   string  `json:"verticalRotorTag" mapstructure:"verticalRotorTag"`
	MissileTag         string  `json:"missileTag" mapstructure:"missileTag"`
	HorizontalSpeed    float64 `json:"horizontalSpeed" mapstructure:"horizontalSpeed"`
	VerticalSpeed      float64 `json:"verticalSpeed" mapstructure:"verticalSpeed"`
	LockDistance       float64 `json:"lockDistance" mapstructure:"lockDistance"`
	StatusSurface      string  `json:"statusSurface" mapstructure:"statusSurface"`
	TargetSurface      string  `json:"targetSurface" mapstructure:"targetSurface"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the flight recorder backend
type StorageConfig struct {
	Type       string       `json:"type" mapstructure:"type"`
	BufferSize int          `json:"bufferSize" mapstructure:"bufferSize"`
	Memory     MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite     SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// APIConfig holds the flight archive server settings, used by the websocket backend
// and for uploading exported flights
type APIConfig struct {
	ServerURL     string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey        string `json:"apiKey" mapstructure:"apiKey"`
	UploadFlights bool   `json:"uploadFlights" mapstructure:"uploadFlights"`
}

// URL is the server address built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value without reading a file.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./naillogs")

	viper.SetDefault("missile.groupTag", "NAIL")
	viper.SetDefault("missile.forwardThrustTag", "Forward")
	viper.SetDefault("missile.statusSurface", "Corax_LCD_MissileTargetInfo")
	viper.SetDefault("missile.launchDistance", 30.0)
	viper.SetDefault("missile.minAngle", 0.01)
	viper.SetDefault("missile.controlCoefficient", 0.9)
	viper.SetDefault("missile.minTurnRate", 0.01)
	viper.SetDefault("missile.maxTurnRate", 2*math.Pi)

	viper.SetDefault("aiming.groupTag", "AimingSys")
	viper.SetDefault("aiming.horizontalRotorTag", "horizontal")
	viper.SetDefault("aiming.verticalRotorTag", "vertical")
	viper.SetDefault("aiming.missileTag", "NAIL")
	viper.SetDefault("aiming.horizontalSpeed", 0.32)
	viper.SetDefault("aiming.verticalSpeed", -0.32)
	viper.SetDefault("aiming.lockDistance", 10000.0)
	viper.SetDefault("aiming.statusSurface", "Corax_LCD_AimingSys")
	viper.SetDefault("aiming.targetSurface", "Corax_LCD_TargetInfo")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.bufferSize", 4096)
	viper.SetDefault("storage.memory.outputDir", "./flights")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.uploadFlights", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "nail")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "nail-telemetry")
	viper.SetDefault("influx.bucket", "flights")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "nail")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetMissileConfig returns the missile settings.
func GetMissileConfig() MissileConfig {
	return MissileConfig{
		GroupTag:           viper.GetString("missile.groupTag"),
		ForwardThrustTag:   viper.GetString("missile.forwardThrustTag"),
		StatusSurface:      viper.GetString("missile.statusSurface"),
		LaunchDistance:     viper.GetFloat64("missile.launchDistance"),
		MinAngle:           viper.GetFloat64("missile.minAngle"),
		ControlCoefficient: viper.GetFloat64("missile.controlCoefficient"),
		MinTurnRate:        viper.GetFloat64("missile.minTurnRate"),
		MaxTurnRate:        viper.GetFloat64("missile.maxTurnRate"),
	}
}

// GetAimingConfig returns the aiming turret settings.
func GetAimingConfig() AimingConfig {
	return AimingConfig{
		GroupTag:           viper.GetString("aiming.groupTag"),
		HorizontalRotorTag: viper.GetString("aiming.horizontalRotorTag"),
		VerticalRotorTag:   viper.GetString("aiming.verticalRotorTag"),
		MissileTag:         viper.GetString("aiming.missileTag"),
		HorizontalSpeed:    viper.GetFloat64("aiming.horizontalSpeed"),
		VerticalSpeed:      viper.GetFloat64("aiming.verticalSpeed"),
		LockDistance:       viper.GetFloat64("aiming.lockDistance"),
		StatusSurface:      viper.GetString("aiming.statusSurface"),
		TargetSurface:      viper.GetString("aiming.targetSurface"),
	}
}

// GetStorageConfig returns the flight recorder storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:       viper.GetString("storage.type"),
		BufferSize: viper.GetInt("storage.bufferSize"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB connection settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetAPIConfig returns the flight archive server settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL:     viper.GetString("api.serverUrl"),
		APIKey:        viper.GetString("api.apiKey"),
		UploadFlights: viper.GetBool("api.uploadFlights"),
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

// Settings returns every setting in effect, for snapshotting into a flight record.
func Settings() map[string]any {
	return viper.AllSettings()
}
