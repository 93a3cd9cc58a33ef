// Package main is the entry point for the arxivmcp CLI.
//
// The binary runs the MCP tool server (stdio or Streamable HTTP) and also exposes
// the same operations directly: download, search, list and read. Configuration is
// loaded once before any command runs; a .env file in the working directory is
// loaded first so its variables can override the config file.
package main

import (
	"context"
	"errors"
	"os"

	"arxivmcp/internal/arxiv"
	"arxivmcp/internal/config"
	"arxivmcp/internal/download"
	"arxivmcp/internal/filemanager"
	"arxivmcp/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app holds the wired components shared by every command.
type app struct {
	cfg        *config.Config
	logger     *logging.AppLogger
	resolver   *filemanager.Resolver
	client     *arxiv.Client
	downloader *download.Downloader
	store      *download.Store
}

type rootFlags struct {
	configPath string
	storageDir string
	envFiles   []string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     = new(app)
	)

	root := &cobra.Command{
		Use:   "arxivmcp",
		Short: "arXiv paper search, download and conversion over MCP",
		Long: `arxivmcp searches the arXiv catalogue and keeps a local library of papers
converted to Markdown. It fetches the HTML rendering of a paper when one exists
and falls back to downloading the PDF and converting it with an external tool.

Run "arxivmcp serve" to expose the tools to an MCP client:
  - download_paper: fetch and convert a paper, or check its status
  - search_papers:  query the arXiv catalogue
  - list_papers:    list stored papers
  - read_paper:     return a stored paper's Markdown`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if isConfigCmd(cmd) {
				return nil
			}
			loadEnvFiles(flags.envFiles)
			wired, err := newApp(flags)
			if err != nil {
				return err
			}
			*a = *wired
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file `path` (default: platform config dir)")
	pf.StringVarP(&flags.storageDir, "storage", "s", "", "storage `directory` for papers, overrides the config file")
	pf.StringSliceVar(&flags.envFiles, "env-file", []string{".env"}, "dotenv `files` to load before reading configuration")

	root.AddCommand(
		newServeCmd(a),
		newDownloadCmd(a),
		newSearchCmd(a),
		newListCmd(a),
		newReadCmd(a),
		newConfigCmd(&flags),
	)
	return root
}

// newApp loads the configuration and wires the download pipeline.
func newApp(flags rootFlags) (*app, error) {
	logger := logging.GetDefault()

	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		logger.Error("Error loading config", "error", err)
		return nil, err
	}
	if flags.storageDir != "" {
		cfg.StorageDir = filemanager.ExpandPath(flags.storageDir)
	}
	logger.Debug("Configuration loaded", "storage", cfg.StorageDir, "converter", cfg.ConverterBinary)

	resolver, err := filemanager.NewResolver(cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	client := arxiv.New(cfg.APIBaseURL,
		arxiv.WithRequestInterval(cfg.RequestInterval),
		arxiv.WithLogger(logger),
	)
	registry := download.NewRegistry(logger)
	html := download.NewHTMLFetcher(cfg.HTMLBaseURL, resolver, logger)
	converter := download.NewConverter(cfg.ConverterBinary, resolver, registry, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		resolver:   resolver,
		client:     client,
		downloader: download.NewDownloader(resolver, registry, html, converter, client, logger),
		store:      download.NewStore(resolver, cfg.MaxReadSize),
	}, nil
}

// loadEnvFiles loads dotenv files, skipping the ones that do not exist.
func loadEnvFiles(files []string) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Failed to load env file", "file", f, "error", err)
		}
	}
}

// isConfigCmd reports whether cmd belongs to the config subtree, which must work
// even when the current configuration is invalid.
func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}
