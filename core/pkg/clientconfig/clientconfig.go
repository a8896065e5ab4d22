// Package clientconfig holds ClientConfig, the named bag of broker
// connection settings Producer, Consumer, StreamHandler and RequestSender
// are all built from.
package clientconfig

import (
	"github.com/google/uuid"

	"github.com/madcok-co/streamrpc/contrib/config"
)

// ClientConfig is a key-value map of broker settings with the client
// identifier, bootstrap servers, and auto-topic-creation preset. The
// clusterId doubles as the default consumer-group id and the default
// topic name when no topic list is supplied.
type ClientConfig struct {
	ClusterId        string `validate:"required"`
	BootstrapServers string `validate:"required"`
	ClientId         string

	Topics []string

	ConcurrencyLimit int `validate:"min=1"`
	TimeoutSecs      int64 `validate:"min=1"`

	LogLevel string

	// Options is forwarded verbatim to the broker client driver (e.g.
	// compression, batch size, SASL/TLS settings) — streamrpc does not
	// re-specify those knobs.
	Options map[string]string
}

const (
	DefaultConcurrencyLimit = 100
	DefaultTimeoutSecs      = 600
)

// New creates a ClientConfig with the three always-preset fields: a
// client identifier (<clusterId>-<uuid>), the bootstrap server list, and
// auto-topic-creation enabled.
func New(clusterId, bootstrapServers string) *ClientConfig {
	return &ClientConfig{
		ClusterId:        clusterId,
		BootstrapServers: bootstrapServers,
		ClientId:         clusterId + "-" + uuid.NewString(),
		ConcurrencyLimit: DefaultConcurrencyLimit,
		TimeoutSecs:      DefaultTimeoutSecs,
		Options: map[string]string{
			"allow.auto.create.topics": "true",
		},
	}
}

// WithTopics sets the consumer subscription list.
func (c *ClientConfig) WithTopics(topics []string) *ClientConfig {
	c.Topics = topics
	return c
}

// Set stores a custom broker option, forwarded verbatim to the driver.
func (c *ClientConfig) Set(key, value string) *ClientConfig {
	if c.Options == nil {
		c.Options = make(map[string]string)
	}
	c.Options[key] = value
	return c
}

// SetLogLevel sets the pass-through log level for the broker client.
func (c *ClientConfig) SetLogLevel(level string) *ClientConfig {
	c.LogLevel = level
	return c
}

// ResolvedTopics returns Topics, or [ClusterId] when none were set.
func (c *ClientConfig) ResolvedTopics() []string {
	if len(c.Topics) == 0 {
		return []string{c.ClusterId}
	}
	return c.Topics
}

// ResolvedConcurrencyLimit returns ConcurrencyLimit, or the default.
func (c *ClientConfig) ResolvedConcurrencyLimit() int {
	if c.ConcurrencyLimit <= 0 {
		return DefaultConcurrencyLimit
	}
	return c.ConcurrencyLimit
}

// ResolvedTimeoutSecs returns TimeoutSecs, or the default.
func (c *ClientConfig) ResolvedTimeoutSecs() int64 {
	if c.TimeoutSecs <= 0 {
		return DefaultTimeoutSecs
	}
	return c.TimeoutSecs
}

// FromDriver builds a ClientConfig from a contrib/config Driver, reading
// clusterId and bootstrapServers (config keys "clusterId" and
// "bootstrapServers") and layering any of topics, concurrencyLimit,
// timeoutSecs, logLevel and payloadCompression found alongside them over
// New's defaults. A nil or zero-value driver key falls through to the
// same default New would have used.
func FromDriver(d *config.Driver) *ClientConfig {
	cfg := New(d.GetString("clusterId"), d.GetStringWithDefault("bootstrapServers", "localhost:9092"))

	if topics := d.GetStringSlice("topics"); len(topics) > 0 {
		cfg.Topics = topics
	}
	if v := d.GetInt("concurrencyLimit"); v > 0 {
		cfg.ConcurrencyLimit = v
	}
	if v := d.GetInt64("timeoutSecs"); v > 0 {
		cfg.TimeoutSecs = v
	}
	if lvl := d.GetString("logLevel"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if comp := d.GetString("payloadCompression"); comp != "" {
		cfg.Set("payloadCompression", comp)
	}
	return cfg
}

// ResolvedPayloadCompression returns the "payloadCompression" option
// (e.g. "brotli"), or "" when envelope bodies go over the wire
// uncompressed.
func (c *ClientConfig) ResolvedPayloadCompression() string {
	return c.Options["payloadCompression"]
}
