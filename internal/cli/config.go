package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strata"
)

// FileConfig is the optional YAML configuration accepted via --config.
// Mappings merge with (and lose to) explicit --map flags.
type FileConfig struct {
	InitialBufferCapacity int               `yaml:"initial_buffer_capacity"`
	MaxFrameLength        uint32            `yaml:"max_frame_length"`
	StdinChunkSize        int               `yaml:"stdin_chunk_size"`
	IndexBackend          string            `yaml:"index_backend"`
	Mappings              map[string]string `yaml:"mappings"`
}

// LoadFileConfig reads and validates a YAML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	switch fc.IndexBackend {
	case "", string(strata.IndexBTree), string(strata.IndexSQLite):
	default:
		return nil, fmt.Errorf("config %s: unknown index_backend %q", path, fc.IndexBackend)
	}
	return &fc, nil
}

// EngineConfig converts the file config into the engine's Config.
func (fc *FileConfig) EngineConfig() strata.Config {
	return strata.Config{
		InitialBufferCapacity: fc.InitialBufferCapacity,
		MaxFrameLength:        fc.MaxFrameLength,
		StdinChunkSize:        fc.StdinChunkSize,
		IndexBackend:          strata.IndexBackend(fc.IndexBackend),
	}
}
