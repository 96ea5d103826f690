package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	CacheSize int
}

// New creates an embedder from explicit configuration. An empty or unknown
// provider is an error: indexing without real embeddings would silently
// produce a useless vector index, so the caller must choose. The
// deterministic provider is available but has to be named explicitly.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderDeterministic:
		return NewDeterministicProvider(cache)
	case "":
		return nil, ErrNoProviderEnabled
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder from environment variables. Selection
// order: CODEGRAPH_EMBEDDING_PROVIDER if set, otherwise whichever API key
// is present. With neither, it fails rather than degrade to a non-semantic
// provider.
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		CacheSize: 10000,
	})
}

// DetectProvider reports which provider the current environment selects,
// or empty when none is configured.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ""
}
