// Package config holds session configuration loaded from YAML.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/jsbridge/errors"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// Script engines a session can run on.
const (
	EngineGoja    = "goja"
	EngineQuickJS = "quickjs"
)

// Config is the root configuration document.
type Config struct {
	Session  Session  `yaml:"session" json:"session"`
	Log      Log      `yaml:"log" json:"log"`
	Builtins Builtins `yaml:"builtins" json:"builtins"`
	Marshal  Marshal  `yaml:"marshal" json:"marshal"`
}

// Session configures the engine session.
type Session struct {
	Name      string `yaml:"name" json:"name,omitempty" jsonschema:"description=Session name used in logs"`
	Engine    string `yaml:"engine" json:"engine,omitempty" validate:"omitempty,oneof=goja quickjs" jsonschema:"enum=goja,enum=quickjs,default=goja,description=Script engine"`
	QueueSize int    `yaml:"queue_size" json:"queue_size" validate:"min=1,max=65536" jsonschema:"minimum=1,maximum=65536,default=64,description=Pending task capacity"`
}

// Builtins selects the native utilities installed into every session.
type Builtins struct {
	LogSinkName string `yaml:"log_sink_name" json:"log_sink_name" validate:"omitempty,max=64" jsonschema:"default=adb"`
	LogSink     bool   `yaml:"log_sink" json:"log_sink" jsonschema:"default=true"`
	Console     bool   `yaml:"console" json:"console" jsonschema:"default=true"`
	Crypto      bool   `yaml:"crypto" json:"crypto" jsonschema:"default=true"`
}

// Marshal toggles optional value conversions.
type Marshal struct {
	DateAllowed   bool `yaml:"date_allowed" json:"date_allowed"`
	RegExpAllowed bool `yaml:"regexp_allowed" json:"regexp_allowed"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Session: Session{
			Name:      "jsbridge",
			Engine:    EngineGoja,
			QueueSize: 64,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Builtins: Builtins{
			LogSink:     true,
			LogSinkName: "adb",
			Console:     true,
			Crypto:      true,
		},
	}
}

// Load reads and validates a YAML file. Missing keys keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Detail("read %s", path).
			Cause(err).
			Build()
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "config validation failed")
	}
	return nil
}

// Schema returns the JSON schema of the configuration document.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
