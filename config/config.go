// config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	CSE           CSEConfiguration
	Retrieve      RetrieveConfiguration
	Persistence   PersistenceConfiguration
	Notification  NotificationConfiguration
	Federation    FederationConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// CSEConfiguration identifies this node and its administrative originator
type CSEConfiguration struct {
	ID                      string
	Name                    string
	AdminOriginator         string
	RegistrationOriginators []string
}

// RetrieveConfiguration caps deep retrieval
type RetrieveConfiguration struct {
	MaxLevel   int
	MaxResults int
}

// PersistenceConfiguration selects the store engine
type PersistenceConfiguration struct {
	Engine      string
	LockTimeout time.Duration
}

// NotificationConfiguration bounds notification fan-out
type NotificationConfiguration struct {
	Workers int
	Timeout time.Duration
}

// FederationConfiguration maps remote CSE IDs to their HTTP base URLs
type FederationConfiguration struct {
	Remotes map[string]string
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Enabled bool
	Addr    string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	Enabled bool
	URL     string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults()

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("cse.id", "in-cse")
	viper.SetDefault("cse.name", "in-name")
	viper.SetDefault("cse.adminOriginator", "CAdmin")
	viper.SetDefault("cse.registrationOriginators", []string{"*"})
	viper.SetDefault("retrieve.maxLevel", 10)
	viper.SetDefault("retrieve.maxResults", 1000)
	viper.SetDefault("persistence.engine", "memory")
	viper.SetDefault("persistence.lockTimeout", "5s")
	viper.SetDefault("notification.workers", 8)
	viper.SetDefault("notification.timeout", "10s")
	viper.SetDefault("dac.timeout", "5s")
	viper.SetDefault("acp.cacheSize", 1024)
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("elasticsearch.enabled", false)
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("elasticsearch.index", "cse-audit")
	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.per", "1m")
	viper.SetDefault("auth.jwtSecret", "")
	viper.SetDefault("log.dir", "")
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetStringSlice retrieves a string slice from the configuration
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// GetStringMapString retrieves a string map from the configuration
func GetStringMapString(key string) map[string]string {
	return viper.GetStringMapString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetFloat64 retrieves a float64 value from the configuration
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
