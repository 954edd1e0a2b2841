package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// settableKeys are the scalar keys `config set` accepts.
var settableKeys = map[string]string{
	"api_key":                    "string",
	"base_url":                   "string",
	"model":                      "string",
	"mode":                       "string",
	"temperature":                "float",
	"context.compress_threshold": "int",
	"context.keep_recent":        "int",
	"sessions.enabled":           "bool",
	"sessions.max_age_days":      "int",
	"sessions.max_count":         "int",
	"sessions.path":              "string",
}

// SettableKeys lists the keys accepted by Set.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	return keys
}

// Set writes one key into the YAML file at path, keeping the file's other
// keys. Comments are not preserved.
func Set(path, key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	typed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return err
	}

	setPath(doc, strings.Split(key, "."), typed)
	return writeYAML(path, doc)
}

// Save writes cfg to its path.
func Save(cfg *Config) error {
	if cfg.path == "" {
		path, err := GetConfigPath()
		if err != nil {
			return err
		}
		cfg.path = path
	}
	return writeYAML(cfg.path, cfg)
}

// Redacted returns the config as YAML with the API key masked.
func Redacted(cfg *Config) (string, error) {
	c := *cfg
	c.APIKey = maskKey(c.APIKey)
	out, err := yaml.Marshal(&c)
	return string(out), err
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	// The file may hold an API key.
	return os.WriteFile(path, out, 0600)
}

func setPath(doc map[string]any, parts []string, value any) {
	for _, p := range parts[:len(parts)-1] {
		next, ok := doc[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			doc[p] = next
		}
		doc = next
	}
	doc[parts[len(parts)-1]] = value
}

func parseValue(kind, value string) (any, error) {
	switch kind {
	case "int":
		return strconv.Atoi(value)
	case "float":
		return strconv.ParseFloat(value, 64)
	case "bool":
		return strconv.ParseBool(value)
	}
	return value, nil
}
