package config

import (
	"fmt"

	"github.com/vyrodovalexey/avtreegw/internal/util"
)

// ServerConfig is the fully resolved server configuration.
type ServerConfig struct {
	// RootPath is the gateway working directory. After resolution it is
	// always absolute; it defaults to the directory containing the base
	// configuration file.
	RootPath string `yaml:"rootPath,omitempty" json:"rootPath,omitempty"`

	// MiddlewarePath is the directory middleware modules are loaded
	// from. After resolution it is always absolute; it defaults to
	// RootPath/middleware.
	MiddlewarePath string `yaml:"middlewarePath,omitempty" json:"middlewarePath,omitempty"`

	// Database holds the configuration store connection parameters.
	Database *DatabaseConfig `yaml:"database,omitempty" json:"database,omitempty"`

	// Gateway is the dynamic, store-overlayable subtree. It is nil until
	// resolution completes and always present afterwards.
	Gateway *GatewayConfig `yaml:"gateway,omitempty" json:"gateway,omitempty"`
}

// DatabaseConfig configures the persistence backend.
type DatabaseConfig struct {
	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the Redis connection topology. Exactly one of
// Standalone, Sentinel, or Cluster must be set.
type RedisConfig struct {
	Standalone *RedisEndpoint       `yaml:"standalone,omitempty" json:"standalone,omitempty"`
	Sentinel   *RedisSentinelConfig `yaml:"sentinel,omitempty" json:"sentinel,omitempty"`
	Cluster    []RedisEndpoint      `yaml:"cluster,omitempty" json:"cluster,omitempty"`
	Options    *RedisOptions        `yaml:"options,omitempty" json:"options,omitempty"`
}

// RedisEndpoint is a single Redis node address.
type RedisEndpoint struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// RedisSentinelConfig configures Redis Sentinel topology.
type RedisSentinelConfig struct {
	Nodes []RedisEndpoint `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	Name  string          `yaml:"name,omitempty" json:"name,omitempty"`
}

// RedisOptions holds connection options shared by all topologies.
type RedisOptions struct {
	Password  string `yaml:"password,omitempty" json:"password,omitempty"`
	DB        int    `yaml:"db,omitempty" json:"db,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
}

// Addr returns the endpoint in host:port form.
func (e RedisEndpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// GatewayConfig is the dynamic portion of the configuration. It can be
// overridden by a value persisted in the configuration store; stored
// keys take precedence over file keys.
type GatewayConfig struct {
	// Protocol configures the gateway listeners. It must be non-empty
	// after the store overlay or resolution fails.
	Protocol *ProtocolConfig `yaml:"protocol,omitempty" json:"protocol,omitempty"`

	// Admin configures the administration API.
	Admin *AdminConfig `yaml:"admin,omitempty" json:"admin,omitempty"`

	// Filter lists gateway-level request filters.
	Filter []FilterConfig `yaml:"filter,omitempty" json:"filter,omitempty"`

	// ServiceDiscovery configures service discovery providers.
	ServiceDiscovery *ServiceDiscoveryConfig `yaml:"serviceDiscovery,omitempty" json:"serviceDiscovery,omitempty"`

	// Logger configures the main gateway logger.
	Logger *LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty"`

	// AccessLogger configures the request access logger.
	AccessLogger *AccessLoggerConfig `yaml:"accessLogger,omitempty" json:"accessLogger,omitempty"`

	// Cache holds named cache configurations keyed by user-chosen names.
	Cache map[string]CacheEntryConfig `yaml:"cache,omitempty" json:"cache,omitempty"`

	// Cors holds named CORS configurations keyed by user-chosen names.
	Cors map[string]CorsEntryConfig `yaml:"cors,omitempty" json:"cors,omitempty"`
}

// ProtocolConfig configures the listener protocols.
type ProtocolConfig struct {
	HTTP  *HTTPConfig  `yaml:"http,omitempty" json:"http,omitempty"`
	HTTPS *HTTPSConfig `yaml:"https,omitempty" json:"https,omitempty"`
}

// HTTPConfig configures the plain HTTP listener.
type HTTPConfig struct {
	ListenPort int `yaml:"listenPort,omitempty" json:"listenPort,omitempty"`
}

// HTTPSConfig configures the TLS listener. Relative PrivateKey and Cert
// paths are resolved against the server rootPath during resolution.
type HTTPSConfig struct {
	ListenPort int    `yaml:"listenPort,omitempty" json:"listenPort,omitempty"`
	PrivateKey string `yaml:"privateKey,omitempty" json:"privateKey,omitempty"`
	Cert       string `yaml:"cert,omitempty" json:"cert,omitempty"`
}

// AdminConfig configures the administration API.
type AdminConfig struct {
	Protocol *ProtocolConfig `yaml:"protocol,omitempty" json:"protocol,omitempty"`

	// Filter lists admin-level request filter names.
	Filter []string `yaml:"filter,omitempty" json:"filter,omitempty"`

	AccessLogger *AccessLoggerConfig `yaml:"accessLogger,omitempty" json:"accessLogger,omitempty"`

	// SessionSecret signs administrative sessions. A fresh random value
	// is generated when a default gateway configuration is synthesized.
	SessionSecret string `yaml:"sessionSecret,omitempty" json:"sessionSecret,omitempty"`
}

// FilterConfig references a middleware filter by name.
type FilterConfig struct {
	Name string `yaml:"name" json:"name"`

	// Path overrides the middleware lookup location for this filter.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ServiceDiscoveryConfig configures service discovery providers.
type ServiceDiscoveryConfig struct {
	Provider []FilterConfig `yaml:"provider,omitempty" json:"provider,omitempty"`
}

// LoggerConfig configures a gateway logger.
type LoggerConfig struct {
	Level   string            `yaml:"level,omitempty" json:"level,omitempty"`
	Console *ConsoleLogConfig `yaml:"console,omitempty" json:"console,omitempty"`
}

// AccessLoggerConfig configures an access logger.
type AccessLoggerConfig struct {
	Console *ConsoleLogConfig `yaml:"console,omitempty" json:"console,omitempty"`
}

// ConsoleLogConfig configures console log output.
type ConsoleLogConfig struct {
	Timestamp bool `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`

	// StderrLevels lists the levels routed to stderr instead of stdout.
	StderrLevels []string `yaml:"stderrLevels,omitempty" json:"stderrLevels,omitempty"`
}

// CacheEntryConfig is a named cache configuration.
type CacheEntryConfig struct {
	CacheTime       string   `yaml:"cacheTime,omitempty" json:"cacheTime,omitempty"`
	PreserveHeaders []string `yaml:"preserveHeaders,omitempty" json:"preserveHeaders,omitempty"`
}

// CorsEntryConfig is a named CORS configuration.
type CorsEntryConfig struct {
	Origin         string   `yaml:"origin,omitempty" json:"origin,omitempty"`
	Credentials    bool     `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	AllowedHeaders []string `yaml:"allowedHeaders,omitempty" json:"allowedHeaders,omitempty"`
	ExposedHeaders []string `yaml:"exposedHeaders,omitempty" json:"exposedHeaders,omitempty"`
	Methods        []string `yaml:"methods,omitempty" json:"methods,omitempty"`
}

// Validate checks the server-level configuration. The gateway subtree is
// validated separately after the store overlay.
func (c *ServerConfig) Validate() error {
	verr := util.NewValidationError("server config invalid")

	if c.Database == nil || c.Database.Redis == nil {
		verr.AddField("database.redis", "database connection configuration is required")
	} else {
		validateRedis(c.Database.Redis, verr)
	}

	if verr.HasFields() {
		return verr
	}
	return nil
}

// validateRedis checks that exactly one connection topology is set.
func validateRedis(r *RedisConfig, verr *util.ValidationError) {
	topologies := 0
	if r.Standalone != nil {
		topologies++
		if r.Standalone.Host == "" {
			verr.AddField("database.redis.standalone.host", "host is required")
		}
	}
	if r.Sentinel != nil {
		topologies++
		if len(r.Sentinel.Nodes) == 0 {
			verr.AddField("database.redis.sentinel.nodes", "at least one sentinel node is required")
		}
		if r.Sentinel.Name == "" {
			verr.AddField("database.redis.sentinel.name", "master name is required")
		}
	}
	if len(r.Cluster) > 0 {
		topologies++
	}

	if topologies != 1 {
		verr.AddField("database.redis",
			"exactly one of standalone, sentinel, or cluster must be configured")
	}
}

// Validate checks the gateway subtree against its schema.
func (g *GatewayConfig) Validate() error {
	verr := util.NewValidationError("gateway config invalid")

	if g.Protocol == nil || (g.Protocol.HTTP == nil && g.Protocol.HTTPS == nil) {
		verr.AddField("protocol", "at least one of http or https must be configured")
	} else {
		validateProtocol(g.Protocol, "protocol", verr)
	}

	if g.Admin != nil && g.Admin.Protocol != nil {
		validateProtocol(g.Admin.Protocol, "admin.protocol", verr)
	}

	for i, f := range g.Filter {
		if f.Name == "" {
			verr.AddField(fmt.Sprintf("filter[%d].name", i), "filter name is required")
		}
	}

	if g.Logger != nil && g.Logger.Level != "" {
		switch g.Logger.Level {
		case "debug", "info", "warn", "error":
		default:
			verr.AddField("logger.level", "must be one of debug, info, warn, error")
		}
	}

	if verr.HasFields() {
		return verr
	}
	return nil
}

// validateProtocol checks listener port ranges and TLS file references.
func validateProtocol(p *ProtocolConfig, prefix string, verr *util.ValidationError) {
	if p.HTTP != nil && (p.HTTP.ListenPort < 1 || p.HTTP.ListenPort > 65535) {
		verr.AddField(prefix+".http.listenPort", "must be between 1 and 65535")
	}
	if p.HTTPS != nil {
		if p.HTTPS.ListenPort < 1 || p.HTTPS.ListenPort > 65535 {
			verr.AddField(prefix+".https.listenPort", "must be between 1 and 65535")
		}
		if p.HTTPS.PrivateKey == "" {
			verr.AddField(prefix+".https.privateKey", "private key path is required")
		}
		if p.HTTPS.Cert == "" {
			verr.AddField(prefix+".https.cert", "certificate path is required")
		}
	}
}
