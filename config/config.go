// Copyright 2024 The Vesta Authors
// This file is part of Vesta.
//
// Vesta is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Vesta is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Vesta. If not, see <http://www.gnu.org/licenses/>.

// Package config loads the subset of a repository's `.vrc`-equivalent
// settings this library layer consults directly. The full Vesta
// configuration file format (sections for every tool, inheritance
// between them) is out of scope per spec.md; this is only what
// cmd/vesta-repository needs to construct a source.Repository and start
// its background workers.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the repository server's own settings, loaded from a TOML
// file.
type Config struct {
	// HostPort is this repository's own "host:port" identity, the value
	// source.Repository.HostPort and every mastered object's HostPort
	// field is stamped with.
	HostPort string `toml:"host_port"`

	// MasterHint seeds source.Repository.MasterHint. Nothing in this
	// module reads that field once it is set.
	MasterHint string `toml:"master_hint"`

	// RecoverySleep populates mastership.Recoverer.Idle. Recovery runs as
	// a single pass at startup, so no loop sleeps on this value.
	RecoverySleep Duration `toml:"recovery_sleep"`

	// ReplicationChunkSize is the byte count replication's chunked Read
	// fallback requests per call when ReadWhole is unavailable.
	ReplicationChunkSize int64 `toml:"replication_chunk_size"`

	// StorePath is the SQLite file vesta/store opens for blob content;
	// ":memory:" is valid for a throwaway instance.
	StorePath string `toml:"store_path"`
}

// Duration lets a TOML value like "1h" or "90s" populate a
// time.Duration field, since go-toml/v2 doesn't do this by default.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// AsDuration returns d as a plain time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// Default returns the settings a freshly initialized repository uses
// absent an explicit config file.
func Default() Config {
	return Config{
		RecoverySleep:        Duration(time.Hour),
		ReplicationChunkSize: 128 * 1024,
		StorePath:            "vesta.db",
	}
}

// Load reads and parses a TOML config file at path, filling in any
// field it doesn't mention with Default()'s value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if cfg.HostPort == "" {
		return Config{}, fmt.Errorf("config: %q: host_port is required", path)
	}
	return cfg, nil
}
