/*
 * MIT License
 *
 * Copyright (c) 2026 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config loads the server's flat YAML configuration file,
// writing a default one out on first run, and can watch it for rewrites
// so a subset of settings can change without a restart.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Server holds the listener's own settings.
type Server struct {
	Port    int `yaml:"port"`
	Timeout int `yaml:"timeout"`
}

// MySQL holds the connection parameters and pool bounds for the demo
// auth database.
type MySQL struct {
	Host        string `yaml:"host"`
	Port        uint16 `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DB          string `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
	PoolMinSize int    `yaml:"pool_min_size"`
	PoolMaxSize int    `yaml:"pool_max_size"`
}

// Log holds the async logger's destination and formatting settings.
type Log struct {
	Directory    string `yaml:"directory"`
	Level        int    `yaml:"level"`
	SizeMiB      int    `yaml:"size"`
	Basename     string `yaml:"basename"`
	Colorful     bool   `yaml:"colorful"`
	OutputToFile bool   `yaml:"output_to_file"`
}

// Site holds the static-file tree root.
type Site struct {
	Path string `yaml:"path"`
}

// Config is the whole of the server's on-disk configuration.
type Config struct {
	Server Server `yaml:"server"`
	MySQL  MySQL  `yaml:"mysql"`
	Log    Log    `yaml:"log"`
	Site   Site   `yaml:"site"`
}

// Default returns the configuration written to disk the first time the
// server runs without an existing config file.
func Default() *Config {
	return &Config{
		Server: Server{Port: 1316, Timeout: 60000},
		MySQL: MySQL{
			Host:        "localhost",
			Port:        3306,
			User:        "root",
			Password:    "",
			DB:          "tinyweb",
			PoolSize:    4,
			PoolMinSize: 2,
			PoolMaxSize: 10,
		},
		Log: Log{
			Directory:    "./log",
			Level:        2,
			SizeMiB:      8,
			Basename:     "tinyweb",
			Colorful:     true,
			OutputToFile: false,
		},
		Site: Site{Path: "./resources"},
	}
}

// requiredKeys lists every key the table in this package's documentation
// promises the server recognizes. A config file that parses but is
// missing one of these is a fatal startup error, not a silently
// zero-valued field (unlike a missing file, which is replaced by the
// default).
var requiredKeys = []string{
	"server.port", "server.timeout",
	"mysql.host", "mysql.port", "mysql.user", "mysql.password", "mysql.db",
	"mysql.pool_size", "mysql.pool_min_size", "mysql.pool_max_size",
	"log.directory", "log.level", "log.size", "log.basename", "log.colorful", "log.output_to_file",
	"site.path",
}

// Load reads path as YAML into a Config. If path does not exist, Default()
// is marshaled to it first and that default is what gets loaded. If the
// file exists but is missing one of the keys this package documents, Load
// returns an error rather than silently defaulting the field to zero.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, ErrorWriteDefault.Error(err)
		}
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, ErrorReadDefault.Error(err)
		}
	} else if err != nil {
		return nil, ErrorRead.Error(fmt.Errorf("%s: %w", path, err))
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, ErrorParse.Error(fmt.Errorf("%s: %w", path, err))
	}
	if missing := firstMissingKey(doc, requiredKeys); missing != "" {
		return nil, ErrorMissingKey.Error(fmt.Errorf("%q missing from %s", missing, path))
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, ErrorDecode.Error(fmt.Errorf("%s: %w", path, err))
	}
	return &cfg, nil
}

func writeDefault(path string) error {
	out, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// firstMissingKey walks a dotted key like "mysql.pool_size" through the
// parsed YAML document's nested maps, returning the first key (from keys)
// that can't be resolved, or "" if every one is present.
func firstMissingKey(doc map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if !hasDottedKey(doc, key) {
			return key
		}
	}
	return ""
}

func hasDottedKey(doc map[string]interface{}, dotted string) bool {
	node := interface{}(doc)
	start := 0
	for i := 0; i <= len(dotted); i++ {
		if i < len(dotted) && dotted[i] != '.' {
			continue
		}
		part := dotted[start:i]
		start = i + 1

		m, ok := node.(map[string]interface{})
		if !ok {
			return false
		}
		v, present := m[part]
		if !present {
			return false
		}
		node = v
	}
	return true
}
