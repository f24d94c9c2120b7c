// Package config resolves runtime configuration for the memory engine.
// Loads from: env vars > $BASE/config.toml > built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// EmbeddingModel is the default embedding model name.
const EmbeddingModel = "nomic-embed-text"

// Extraction/search tuning constants shared across packages.
const (
	MaxTranscriptMessageChars = 4000    // §4.7 normalization truncation
	MinMessageChars           = 10      // §4.7 drop threshold
	ChunkThresholdChars       = 120_000 // §4.7 chunking trigger
	ChunkSizeChars            = 80_000  // §4.7 chunk size
	MaxEmbedChars             = 30_000  // §4.5 embedding input ceiling
	RetryWindowHours          = 24      // §4.7 failed-extraction cooldown
	HotRecallCap              = 10      // §6 hot recall rotation size
	SessionIndexCap           = 500     // §6 session index cap
	MinScanFileBytes          = 2000    // §4.8 scanner floor
	RRFConstant               = 60      // §4.6 RRF k
)

// Config holds memory-engine configuration loaded from TOML + env.
type Config struct {
	Base      BaseConfig      `toml:"base"`
	Ollama    OllamaConfig    `toml:"ollama"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Scanner   ScannerConfig   `toml:"scanner"`
}

// BaseConfig holds the root storage directory.
type BaseConfig struct {
	Dir string `toml:"dir"`
}

// OllamaConfig holds the legacy single-URL Ollama setting (back-compat with
// the embedding provider's default base URL).
type OllamaConfig struct {
	URL string `toml:"url"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`   // "ollama" (default), "openai", "openai-compatible", "none"
	Model      string `toml:"model"`      // provider-specific default if empty
	APIKey     string `toml:"api_key"`    // required for cloud providers
	BaseURL    string `toml:"base_url"`   // provider-specific default if empty
	Dimensions int    `toml:"dimensions"` // 0 = provider default
}

// ScannerConfig holds batch-scanner tuning.
type ScannerConfig struct {
	TranscriptRoot string `toml:"transcript_root"`
	RateLimitSecs  int    `toml:"rate_limit_secs"`
	DefaultLimit   int    `toml:"default_limit"`
}

// DefaultConfig returns a Config with all built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{URL: "http://localhost:11434"},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    EmbeddingModel,
		},
		Scanner: ScannerConfig{
			RateLimitSecs: 5,
			DefaultLimit:  10,
		},
	}
}

// LoadConfig merges defaults < TOML file (if present) < environment
// variables, matching §6's documented env vars.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if p := findConfigFile(); p != "" {
		meta, err := toml.DecodeFile(p, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", p, err)
		}
		warnUnknownKeys(meta, p)
	}

	if v := os.Getenv("BASE_DIR"); v != "" {
		cfg.Base.Dir = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.Ollama.URL = v
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	return cfg, nil
}

func findConfigFile() string {
	base := os.Getenv("BASE_DIR")
	if base == "" {
		base = defaultBaseDir()
	}
	if base == "" {
		return ""
	}
	p := filepath.Join(base, "config.toml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

var configSuggestions = map[string]string{
	"apikey":   "api_key",
	"api-key":  "api_key",
	"baseurl":  "base_url",
	"base-url": "base_url",
	"dir":      "base.dir",
}

func warnUnknownKeys(meta toml.MetaData, path string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}
	fname := filepath.Base(path)
	for _, key := range undecoded {
		keyStr := key.String()
		last := key[len(key)-1]
		if suggestion, ok := configSuggestions[last]; ok {
			fmt.Fprintf(os.Stderr, "memoryd: WARNING: unknown key %q in %s — did you mean %q?\n", keyStr, fname, suggestion)
		} else {
			fmt.Fprintf(os.Stderr, "memoryd: WARNING: unknown key %q in %s (will be ignored)\n", keyStr, fname)
		}
	}
}

var loadedConfig *Config

func cached() *Config {
	if loadedConfig != nil {
		return loadedConfig
	}
	cfg, err := LoadConfig()
	if err != nil {
		cfg = DefaultConfig()
	}
	loadedConfig = cfg
	return cfg
}

// Sentinel errors, matching §7's store-level/user-facing taxonomy.
var (
	ErrNoBase         = fmt.Errorf("no memory base directory found — set BASE_DIR or run 'memoryd init'")
	ErrNoDatabase     = fmt.Errorf("cannot open memory database — run 'memoryd init'")
	ErrOllamaNotLocal = fmt.Errorf("OLLAMA_URL must point to localhost for security")
)

// BaseDir returns the root directory under which the store and its
// auxiliary MEMORY/ files live.
func BaseDir() string {
	if v := os.Getenv("BASE_DIR"); v != "" {
		return validateBaseDir(v)
	}
	if cfg := cached(); cfg.Base.Dir != "" {
		return validateBaseDir(cfg.Base.Dir)
	}
	return validateBaseDir(defaultBaseDir())
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".memory")
}

// validateBaseDir rejects paths that are too broad (system roots) and
// resolves symlinks so a symlink cannot redirect writes to one.
func validateBaseDir(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	dangerous := []string{"/", "/home", "/Users", "/tmp", "/var", "/etc", "/opt"}
	if runtime.GOOS == "windows" && len(abs) >= 3 {
		for _, letter := range "ABCDEFGHIJKLMNOPQRSTUVWXYZ" {
			dangerous = append(dangerous, string(letter)+":\\")
		}
	}
	for _, d := range dangerous {
		if abs == d {
			fmt.Fprintf(os.Stderr, "memoryd: WARNING: BASE_DIR=%q is too broad, ignoring.\n", abs)
			return ""
		}
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		for _, d := range dangerous {
			if resolved == d {
				fmt.Fprintf(os.Stderr, "memoryd: WARNING: BASE_DIR=%q resolves to %q which is too broad, ignoring.\n", abs, resolved)
				return ""
			}
		}
	}
	return abs
}

// SafeBaseSubpath resolves a relative path within BASE_DIR and validates
// that the result stays inside the base directory boundary.
func SafeBaseSubpath(relativePath string) (string, bool) {
	base := BaseDir()
	if base == "" {
		return "", false
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(filepath.Join(base, filepath.FromSlash(relativePath)))
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return "", false
	}
	return absPath, true
}

// DBPath returns the path to the SQLite database file: $BASE/memory.db.
func DBPath() string {
	if v := os.Getenv("MEM_DB_PATH"); v != "" {
		return v
	}
	return filepath.Join(BaseDir(), "memory.db")
}

// MemoryDir returns the $BASE/MEMORY auxiliary-files directory.
func MemoryDir() string {
	return filepath.Join(BaseDir(), "MEMORY")
}

// OllamaURL returns the validated Ollama API URL; errors if non-localhost.
func OllamaURL() (string, error) {
	raw := os.Getenv("OLLAMA_URL")
	if raw == "" {
		raw = cached().Ollama.URL
	}
	if raw == "" {
		raw = "http://localhost:11434"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid OLLAMA_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("OLLAMA_URL must use http or https scheme, got: %s", u.Scheme)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return "", ErrOllamaNotLocal
	}
	return raw, nil
}

// EmbeddingProviderConfig returns the effective embedding provider config.
func EmbeddingProviderConfig() EmbeddingConfig {
	cfg := cached()
	ec := cfg.Embedding
	if ec.Provider == "" {
		ec.Provider = "ollama"
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		ec.Model = v
	}
	if ec.Provider == "ollama" && ec.BaseURL == "" {
		if u, err := OllamaURL(); err == nil {
			ec.BaseURL = u
		}
	}
	if ec.APIKey == "" && (ec.Provider == "openai" || ec.Provider == "openai-compatible") {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			ec.APIKey = v
		}
	}
	return ec
}

// EmbeddingDim returns the configured embedding dimensionality.
func EmbeddingDim() int {
	ec := EmbeddingProviderConfig()
	if ec.Dimensions > 0 {
		return ec.Dimensions
	}
	switch ec.Provider {
	case "openai":
		switch ec.Model {
		case "text-embedding-3-large":
			return 3072
		default:
			return 1536
		}
	default:
		switch ec.Model {
		case "mxbai-embed-large", "snowflake-arctic-embed", "qwen3-embedding", "bge-m3":
			return 1024
		case "all-minilm":
			return 384
		default:
			return 768
		}
	}
}

// ScannerSettings returns the effective batch-scanner configuration.
func ScannerSettings() ScannerConfig {
	cfg := cached()
	s := cfg.Scanner
	if s.RateLimitSecs <= 0 {
		s.RateLimitSecs = 5
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 10
	}
	if s.TranscriptRoot == "" {
		s.TranscriptRoot = filepath.Join(BaseDir(), "transcripts")
	}
	return s
}
