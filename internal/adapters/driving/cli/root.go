// Package cli implements the command-line interface for Rememex.
// Commands are thin adapters over the driving ports; all behaviour
// lives in the core services.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rememex/rememex-cli/internal/adapters/driven/config/file"
	"github.com/rememex/rememex-cli/internal/adapters/driven/embedding/local"
	"github.com/rememex/rememex-cli/internal/adapters/driven/embedding/remote"
	"github.com/rememex/rememex-cli/internal/adapters/driven/reranker"
	"github.com/rememex/rememex-cli/internal/adapters/driven/storage/sqlite"
	"github.com/rememex/rememex-cli/internal/core/ports/driven"
	"github.com/rememex/rememex-cli/internal/core/ports/driving"
	"github.com/rememex/rememex-cli/internal/core/services"
	"github.com/rememex/rememex-cli/internal/extract"
	"github.com/rememex/rememex-cli/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

var verbose bool

// Wired services, injected by initServices before any command runs.
var (
	configStore    driven.ConfigStore
	fragmentStore  driven.FragmentStore
	searchService  driving.SearchService
	indexerService driving.IndexerService
	containerSvc   driving.ContainerService
	annotationSvc  driving.AnnotationService
	workspaceSvc   driving.WorkspaceService
)

var rootCmd = &cobra.Command{
	Use:   "rememex",
	Short: "Local-first semantic file index",
	Long: `Rememex indexes your local folders into searchable containers.
Files are chunked, embedded and stored locally; search combines
semantic and keyword retrieval with optional reranking.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
	PersistentPostRun: closeServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI with the given build version.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}

// initServices wires the driven adapters into the core services.
// Runs once per invocation before the selected command.
func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	// Help and version need no backend
	switch cmd.Name() {
	case "help", "version", "completion":
		return nil
	}

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configStore = cfg

	registry, err := file.NewContainerRegistry("")
	if err != nil {
		return fmt.Errorf("loading container registry: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	fragmentStore = store

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	var rr driven.Reranker
	if cfg.GetBool("reranker.enabled") {
		rr = reranker.New(reranker.Config{
			BaseURL: cfg.GetString("reranker.base_url"),
			Model:   cfg.GetString("reranker.model"),
		})
	}

	extractor := extract.New(extract.Options{
		ExtraExtensions:    cfg.GetStringSlice("extract.extra_extensions"),
		ExcludedExtensions: cfg.GetStringSlice("extract.excluded_extensions"),
		GitHistory:         cfg.GetBool("extract.git_history"),
		OCRBinary:          cfg.GetString("extract.ocr_binary"),
	})

	searchService = services.NewSearchService(store, embedder, registry, rr)
	indexerService = services.NewIndexerService(store, embedder, registry, extractor, services.IndexerConfig{
		ChunkMaxBytes:     cfg.GetInt("chunking.max_bytes"),
		ChunkOverlapBytes: cfg.GetInt("chunking.overlap_bytes"),
	})
	containers := services.NewContainerService(store, embedder, registry)
	containerSvc = containers
	annotationSvc = services.NewAnnotationService(store, embedder, registry)
	workspaceSvc = services.NewWorkspaceService(store, registry)

	if err := containers.EnsureDefault(cmd.Context()); err != nil {
		return fmt.Errorf("ensuring default container: %w", err)
	}
	return nil
}

// buildEmbedder selects the embedding provider from configuration.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingProvider, error) {
	switch cfg.GetString("embedding.provider") {
	case "remote":
		apiKey := cfg.GetString("embedding.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return remote.NewEmbeddingProvider(remote.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	default:
		return local.NewEmbeddingProvider(local.Config{
			BaseURL:            cfg.GetString("embedding.base_url"),
			Model:              cfg.GetString("embedding.model"),
			Dimensions:         cfg.GetInt("embedding.dimensions"),
			AsymmetricPrefixes: !cfg.GetBool("embedding.no_prefixes"),
		}), nil
	}
}

func closeServices(_ *cobra.Command, _ []string) {
	if fragmentStore != nil {
		_ = fragmentStore.Close()
	}
}
