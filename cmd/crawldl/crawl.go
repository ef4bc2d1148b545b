package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crawldl/crawldl/internal/classify"
	"github.com/crawldl/crawldl/internal/config"
	"github.com/crawldl/crawldl/internal/crawler"
	"github.com/crawldl/crawldl/internal/database"
	"github.com/crawldl/crawldl/internal/delivery"
	"github.com/crawldl/crawldl/internal/download"
	"github.com/crawldl/crawldl/internal/model"
	"github.com/crawldl/crawldl/internal/report"
	"github.com/crawldl/crawldl/internal/runner"
	"github.com/crawldl/crawldl/internal/tor"
	"github.com/crawldl/crawldl/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]...",
		Short: "Crawl seed URLs and download discovered files",
		Long: `Crawl fetches the seed pages, follows links breadth-first up to the
configured depth, classifies discovered links into file categories, and
downloads the matches concurrently.

Files are detected three ways: by URL extension, by download-endpoint
URL patterns (e.g. /download?id=...), and by response headers
(Content-Type, Content-Disposition) confirmed with a HEAD request.

Examples:
  # Crawl a site and download all recognized files
  crawldl crawl https://example.com

  # Only images and documents, two levels deep
  crawldl crawl --category images --category documents --depth 2 https://example.com

  # Crawl an onion service through a running Tor proxy
  crawldl crawl --tor --external-tor 127.0.0.1:9050 http://exampleonion.onion

  # Crawl an onion service with the embedded Tor daemon
  crawldl crawl --tor http://exampleonion.onion

  # Treat .log URLs as documents
  crawldl crawl --ext log=documents https://example.com

  # JSON report to a file
  crawldl crawl --json -o report.json https://example.com

Configuration file (.crawldl) example:
  defaults:
    delay: 1s
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 5
  sftp:
    host: backup.example.net
    username: crawler
    privateKeyPath: ~/.ssh/id_ed25519
    remoteDir: /srv/crawls`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)

	// Download behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultMaxConcurrentDownloads,
		"Number of concurrent downloads")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Retries per file after the first failed attempt")
	cmd.Flags().Int("chunk-size", config.DefaultChunkSize,
		"Streaming copy buffer size in bytes")
	cmd.Flags().Bool("no-metadata", false,
		"Skip writing crawl_metadata.json and found_links.json to the download directory")

	// Delivery flags
	cmd.Flags().String("notify-url", "",
		"HTTP endpoint to POST a notification to after each completed download")
	cmd.Flags().String("notify-token", "",
		"Bearer token sent with download notifications")

	return cmd
}

// addCrawlFlags registers the flags shared by crawl and find.
func addCrawlFlags(cmd *cobra.Command) {
	// Crawl behavior flags
	cmd.Flags().StringP("dir", "d", config.DefaultDownloadDir,
		"Directory where downloaded files are written")
	cmd.Flags().Int("depth", config.DefaultMaxCrawlDepth,
		"Maximum link distance from a seed (0 crawls only the seeds)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch per run")
	cmd.Flags().Int("page-concurrency", config.DefaultPageConcurrency,
		"Number of concurrent page fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().Duration("delay", config.DefaultRequestDelay,
		"Politeness delay between page requests")
	cmd.Flags().StringSlice("category", nil,
		"File category to collect (repeatable; default all: images, videos, audio, documents, archives)")
	cmd.Flags().StringToString("ext", nil,
		"Extra extension-to-category mapping, e.g. --ext log=documents")
	cmd.Flags().Bool("all-domains", false,
		"Follow page links to any host instead of staying on each seed's domain")
	cmd.Flags().StringSlice("allow-host", nil,
		"Extra host to crawl despite same-domain restriction (repeatable)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body", config.DefaultMaxBodySize,
		"Maximum page body bytes parsed per response")

	// Tor connection flags
	cmd.Flags().Bool("tor", false,
		"Enable SOCKS5-proxied fetching of .onion hosts")
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address instead of the embedded daemon (e.g. 127.0.0.1:9050)")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawldl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-history", false,
		"Skip saving the run report to the history database")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCrawl(ctx, cfg, logger)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// buildConfig creates a Config from cobra command flags. Flags not
// registered on the command keep their defaults, so the same function
// serves both crawl and find.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Seeds = args
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.DownloadDir, err = cmd.Flags().GetString("dir")
	if err != nil {
		return nil, err
	}

	cfg.MaxCrawlDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.PageConcurrency, err = cmd.Flags().GetInt("page-concurrency")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.RequestDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.EnabledCategories, err = cmd.Flags().GetStringSlice("category")
	if err != nil {
		return nil, err
	}

	cfg.CustomExtensions, err = cmd.Flags().GetStringToString("ext")
	if err != nil {
		return nil, err
	}

	allDomains, err := cmd.Flags().GetBool("all-domains")
	if err != nil {
		return nil, err
	}
	cfg.SameDomainOnly = !allDomains

	cfg.AllowedHosts, err = cmd.Flags().GetStringSlice("allow-host")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body")
	if err != nil {
		return nil, err
	}

	cfg.UseAnonymityTransport, err = cmd.Flags().GetBool("tor")
	if err != nil {
		return nil, err
	}

	externalTor, err := cmd.Flags().GetString("external-tor")
	if err != nil {
		return nil, err
	}
	if externalTor != "" {
		cfg.UseExternalProxy = true
		cfg.ProxyAddress = externalTor
	}

	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.DBDir = config.XDGDataDir()

	// Flags registered only on crawl
	if cmd.Flags().Lookup("concurrency") != nil {
		cfg.MaxConcurrentDownloads, err = cmd.Flags().GetInt("concurrency")
		if err != nil {
			return nil, err
		}

		cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
		if err != nil {
			return nil, err
		}

		cfg.ChunkSize, err = cmd.Flags().GetInt("chunk-size")
		if err != nil {
			return nil, err
		}

		noMetadata, err := cmd.Flags().GetBool("no-metadata")
		if err != nil {
			return nil, err
		}
		cfg.SaveMetadata = !noMetadata

		cfg.NotifyEndpoint, err = cmd.Flags().GetString("notify-url")
		if err != nil {
			return nil, err
		}

		cfg.NotifyAuthToken, err = cmd.Flags().GetString("notify-token")
		if err != nil {
			return nil, err
		}
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs resolves and loads the .crawldl config file into cfg.
// An explicitly given path must exist; the discovered default is
// optional.
func loadSiteConfigs(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = file
	case explicit:
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	// Sink settings live in the config file; flags override notify.
	cfg.SFTP = cfg.SiteConfigs.SFTP
	if cfg.NotifyEndpoint == "" {
		cfg.NotifyEndpoint = cfg.SiteConfigs.Notify.Endpoint
	}
	if cfg.NotifyAuthToken == "" {
		cfg.NotifyAuthToken = cfg.SiteConfigs.Notify.AuthToken
	}

	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger based on verbosity setting.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}

// runCrawl executes a full crawl-and-download run.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting run",
		"seeds", cfg.Seeds,
		"findOnly", cfg.FindOnly,
		"tor", cfg.UseAnonymityTransport,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	router, cleanup, err := buildRouter(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	classifier := classify.New(
		classify.WithCustomExtensions(cfg.CustomExtensions),
		classify.WithEnabledCategories(cfg.EnabledCategories),
		classify.WithProber(runner.RouterProber{Router: router}),
	)

	frontier := crawler.NewFrontier(router, classifier, frontierOptions(cfg, logger)...)

	runnerOpts := []runner.RunnerOption{
		runner.WithLogger(logger),
		runner.WithFindOnly(cfg.FindOnly),
	}

	var scheduler runner.Downloader
	var pipeline *delivery.Pipeline
	if !cfg.FindOnly {
		s, err := download.NewScheduler(router, cfg.DownloadDir,
			download.WithConcurrency(int64(cfg.MaxConcurrentDownloads)),
			download.WithMaxRetries(cfg.MaxRetries),
			download.WithChunkSize(cfg.ChunkSize),
			download.WithSchedulerLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to prepare download directory: %w", err)
		}
		scheduler = s
		pipeline = delivery.NewPipeline(buildSinks(cfg), logger)
	}

	if cfg.SaveMetadata {
		runnerOpts = append(runnerOpts, runner.WithMetadataDir(cfg.DownloadDir))
	}

	r := runner.New(frontier, scheduler, pipeline, runnerOpts...)

	fmt.Printf("Crawling %d seed(s)...\n", len(cfg.Seeds))
	startTime := time.Now()

	runReport, runErr := r.Run(ctx, cfg.Seeds)

	elapsed := time.Since(startTime)
	fmt.Printf("Run completed in %s\n\n", elapsed.Round(time.Millisecond))

	if err := outputReport(cfg, runReport); err != nil {
		logger.Error("report failed", "error", err)
	}

	if db != nil {
		if _, err := db.SaveRunReport(ctx, runReport); err != nil {
			logger.Error("failed to save run report", "error", err)
		} else {
			logger.Info("run report saved to database")
		}
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

// buildRouter assembles the routed transport from the configuration.
// The returned cleanup stops the embedded Tor daemon when one was
// started; it is safe to call unconditionally.
func buildRouter(cfg *config.Config, logger *slog.Logger) (*transport.Router, func(), error) {
	httpOpts := []transport.HTTPOption{
		transport.WithSiteHeaders(siteHeaders(cfg.SiteConfigs)),
	}

	direct := transport.NewDirect(cfg.RequestTimeout, cfg.UserAgent, httpOpts...)

	routerOpts := []transport.RouterOption{
		transport.WithSuffixes(cfg.OnionSuffixes),
	}

	cleanup := func() {}

	if cfg.UseAnonymityTransport {
		var factory transport.ClientFactory
		if cfg.UseExternalProxy {
			proxyAddr := cfg.ProxyAddress
			timeout := cfg.RequestTimeout
			factory = func(_ context.Context) (*tor.Client, error) {
				return tor.NewClient(proxyAddr, timeout)
			}
		} else {
			embedded := tor.NewEmbeddedTor(
				tor.WithStartupTimeout(cfg.TorStartupTimeout),
			)
			timeout := cfg.RequestTimeout
			factory = func(ctx context.Context) (*tor.Client, error) {
				fmt.Println("Starting embedded Tor daemon...")
				fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")
				if err := embedded.Start(ctx); err != nil {
					return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
				}
				logger.Info("embedded Tor daemon started", "socksAddr", embedded.SocksAddr())
				return embedded.NewClient(timeout)
			}
			cleanup = func() {
				if !embedded.IsRunning() {
					return
				}
				logger.Info("stopping embedded Tor daemon...")
				if err := embedded.Stop(); err != nil {
					logger.Error("failed to stop embedded Tor", "error", err)
				}
			}
		}

		proxied := transport.NewProxied(factory, cfg.UserAgent, httpOpts...)
		routerOpts = append(routerOpts, transport.WithProxied(proxied))
	}

	return transport.NewRouter(direct, routerOpts...), cleanup, nil
}

// siteHeaders flattens the config file's per-site cookie and header
// overrides into the transport's hostname-keyed header map. The
// defaults entry lands under the "*" wildcard key.
func siteHeaders(file *config.File) map[string]map[string]string {
	if file == nil {
		return nil
	}

	headers := make(map[string]map[string]string)

	flatten := func(sc config.SiteConfig) map[string]string {
		out := make(map[string]string, len(sc.Headers)+1)
		for k, v := range sc.Headers {
			out[k] = v
		}
		if sc.Cookie != "" {
			out["Cookie"] = sc.Cookie
		}
		return out
	}

	if defaults := flatten(file.Defaults); len(defaults) > 0 {
		headers["*"] = defaults
	}
	for host := range file.Sites {
		if merged := flatten(file.GetSiteConfig(host)); len(merged) > 0 {
			headers[host] = merged
		}
	}

	return headers
}

// frontierOptions maps the configuration onto crawler options, letting
// the first seed's site config override depth and delay the way a
// per-site entry in the config file is expected to.
func frontierOptions(cfg *config.Config, logger *slog.Logger) []crawler.Option {
	depth := cfg.MaxCrawlDepth
	delay := cfg.RequestDelay

	if cfg.SiteConfigs != nil && len(cfg.Seeds) > 0 {
		if u, err := url.Parse(cfg.Seeds[0]); err == nil {
			site := cfg.SiteConfigs.GetSiteConfig(u.Hostname())
			if site.Depth > 0 {
				depth = site.Depth
			}
			if site.Delay > 0 {
				delay = site.Delay
			}
		}
	}

	return []crawler.Option{
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithPageConcurrency(cfg.PageConcurrency),
		crawler.WithRequestDelay(delay),
		crawler.WithSameDomainOnly(cfg.SameDomainOnly),
		crawler.WithAllowedHosts(cfg.AllowedHosts),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithLogger(logger),
	}
}

// buildSinks creates the configured delivery sinks.
func buildSinks(cfg *config.Config) []delivery.Sink {
	var sinks []delivery.Sink

	if cfg.SFTP.Host != "" {
		sinks = append(sinks, delivery.NewSFTPSink(delivery.SFTPConfig{
			Host:               cfg.SFTP.Host,
			Port:               cfg.SFTP.Port,
			Username:           cfg.SFTP.Username,
			Password:           cfg.SFTP.Password,
			PrivateKeyPath:     cfg.SFTP.PrivateKeyPath,
			RemoteDir:          cfg.SFTP.RemoteDir,
			HostKeyFingerprint: cfg.SFTP.HostKeyFingerprint,
			Timeout:            cfg.RequestTimeout,
		}))
	}

	if cfg.NotifyEndpoint != "" {
		sinks = append(sinks, delivery.NewNotifySink(delivery.NotifyConfig{
			Endpoint:  cfg.NotifyEndpoint,
			AuthToken: cfg.NotifyAuthToken,
			Timeout:   cfg.RequestTimeout,
		}))
	}

	return sinks
}

// outputReport writes the run report in the requested format.
func outputReport(cfg *config.Config, runReport *model.RunReport) error {
	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list every local path written, so keep them
		// owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := writer.Write(runReport)
	return err
}
