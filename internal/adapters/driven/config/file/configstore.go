// Package file implements the config store on a TOML file.
package file

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/quire/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Well-known configuration keys.
const (
	KeyEmbeddingAPIKey    = "embedding.api_key"
	KeyEmbeddingBaseURL   = "embedding.base_url"
	KeyEmbeddingModel     = "embedding.model"
	KeyEmbeddingBatchSize = "embedding.batch_size"

	KeyCompletionAPIKey    = "completion.api_key"
	KeyCompletionBaseURL   = "completion.base_url"
	KeyCompletionModel     = "completion.model"
	KeyCompletionMaxTokens = "completion.max_tokens"

	KeyAskMaxChunks   = "ask.max_chunks"
	KeyAskTemperature = "ask.temperature"

	KeyIngestBatchSize    = "ingest.batch_size"
	KeyIngestBatchDelayMS = "ingest.batch_delay_ms"
	KeyIngestDebounceMS   = "ingest.debounce_ms"

	KeyChunkerMaxSize = "chunker.max_size"
	KeyChunkerOverlap = "chunker.overlap"
	KeyChunkerMinSize = "chunker.min_size"

	KeyDocumentsDir = "documents.dir"
	KeySnapshotPath = "index.snapshot_path"
)

// Settings is the typed view of the configuration with defaults
// applied for every unset key.
type Settings struct {
	EmbeddingAPIKey    string
	EmbeddingBaseURL   string
	EmbeddingModel     string
	EmbeddingBatchSize int

	CompletionAPIKey    string
	CompletionBaseURL   string
	CompletionModel     string
	CompletionMaxTokens int

	MaxChunks   int
	Temperature float64

	IngestBatchSize  int
	IngestBatchDelay time.Duration
	IngestDebounce   time.Duration

	ChunkerMaxSize int
	ChunkerOverlap int
	ChunkerMinSize int

	DocumentsDir string
	SnapshotPath string
}

// ConfigStore is a file-based implementation of driven.ConfigStore
// using TOML. Configuration is stored in a TOML file within the quire
// config directory.
type ConfigStore struct {
	mu       sync.RWMutex
	dir      string
	filePath string
	data     map[string]any
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.quire/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".quire")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		dir:      configDir,
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Settings resolves the typed configuration, applying a default for
// every key the file leaves unset.
func (s *ConfigStore) Settings() Settings {
	set := Settings{
		EmbeddingAPIKey:    s.GetString(KeyEmbeddingAPIKey),
		EmbeddingBaseURL:   s.GetString(KeyEmbeddingBaseURL),
		EmbeddingModel:     s.GetString(KeyEmbeddingModel),
		EmbeddingBatchSize: s.GetInt(KeyEmbeddingBatchSize),

		CompletionAPIKey:    s.GetString(KeyCompletionAPIKey),
		CompletionBaseURL:   s.GetString(KeyCompletionBaseURL),
		CompletionModel:     s.GetString(KeyCompletionModel),
		CompletionMaxTokens: s.GetInt(KeyCompletionMaxTokens),

		MaxChunks:   s.GetInt(KeyAskMaxChunks),
		Temperature: s.GetFloat(KeyAskTemperature),

		IngestBatchSize:  s.GetInt(KeyIngestBatchSize),
		IngestBatchDelay: time.Duration(s.GetInt(KeyIngestBatchDelayMS)) * time.Millisecond,
		IngestDebounce:   time.Duration(s.GetInt(KeyIngestDebounceMS)) * time.Millisecond,

		ChunkerMaxSize: s.GetInt(KeyChunkerMaxSize),
		ChunkerOverlap: s.GetInt(KeyChunkerOverlap),
		ChunkerMinSize: s.GetInt(KeyChunkerMinSize),

		DocumentsDir: s.GetString(KeyDocumentsDir),
		SnapshotPath: s.GetString(KeySnapshotPath),
	}

	if set.EmbeddingAPIKey == "" {
		set.EmbeddingAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if set.CompletionAPIKey == "" {
		set.CompletionAPIKey = set.EmbeddingAPIKey
	}
	if set.MaxChunks <= 0 {
		set.MaxChunks = 5
	}
	if _, ok := s.Get(KeyAskTemperature); !ok {
		set.Temperature = 0.7
	}
	if set.IngestBatchSize <= 0 {
		set.IngestBatchSize = 3
	}
	if set.IngestBatchDelay <= 0 {
		set.IngestBatchDelay = 500 * time.Millisecond
	}
	if set.IngestDebounce <= 0 {
		set.IngestDebounce = time.Second
	}
	if set.ChunkerMaxSize <= 0 {
		set.ChunkerMaxSize = 1000
	}
	if _, ok := s.Get(KeyChunkerOverlap); !ok {
		set.ChunkerOverlap = 200
	}
	if set.ChunkerMinSize <= 0 {
		set.ChunkerMinSize = 100
	}
	if set.DocumentsDir == "" {
		set.DocumentsDir = filepath.Join(s.dir, "documents")
	}
	if set.SnapshotPath == "" {
		set.SnapshotPath = filepath.Join(s.dir, "index.db")
	}

	return set
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}

	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// GetFloat retrieves a floating-point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, ok := s.Get(key)
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	val, ok := s.Get(key)
	if !ok {
		return false
	}

	b, ok := val.(bool)
	if !ok {
		return false
	}
	return b
}

// Set stores a configuration value and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.data)
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads configuration from the TOML file.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}
