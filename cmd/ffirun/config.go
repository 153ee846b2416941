package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/ffi-runtime/descriptor"
)

// Config is the YAML configuration file. Command-line flags override it.
type Config struct {
	Library   string            `yaml:"library"`
	Header    string            `yaml:"header"`
	Reference bool              `yaml:"reference"`
	Semantics map[string]string `yaml:"semantics"`
	APIGuard  *GuardConfig      `yaml:"api_guard"`
	Lazy      bool              `yaml:"lazy"`
	Global    bool              `yaml:"global"`
	Verbose   bool              `yaml:"verbose"`
	Calls     []CallConfig      `yaml:"calls"`
}

// GuardConfig names the library's API hash function and the expected hash.
type GuardConfig struct {
	Func string `yaml:"func"`
	Hash uint64 `yaml:"hash"`
}

// CallConfig is one scripted call.
type CallConfig struct {
	Func string `yaml:"func"`
	Args []any  `yaml:"args"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// pointerSemantics converts the semantics section into parser overrides.
func (c *Config) pointerSemantics() (map[string]descriptor.PointerSemantics, error) {
	if len(c.Semantics) == 0 {
		return nil, nil
	}
	out := make(map[string]descriptor.PointerSemantics, len(c.Semantics))
	for pos, name := range c.Semantics {
		sem, ok := parseSemantics(name)
		if !ok {
			return nil, fmt.Errorf("semantics %s: unknown value %q", pos, name)
		}
		out[pos] = sem
	}
	return out, nil
}

func parseSemantics(name string) (descriptor.PointerSemantics, bool) {
	for _, s := range []descriptor.PointerSemantics{
		descriptor.Required, descriptor.Optional, descriptor.DoubleIndirection,
	} {
		if strings.EqualFold(name, s.String()) {
			return s, true
		}
	}
	return 0, false
}
