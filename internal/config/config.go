package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/crawldl/crawldl/internal/classify"
)

// Default configuration values.
const (
	// DefaultDownloadDir is where downloaded files land when no
	// directory is configured.
	DefaultDownloadDir = "downloads"

	// DefaultProxyAddress is the standard Tor SOCKS5 proxy address.
	// 127.0.0.1 instead of localhost avoids IPv6 resolution surprises.
	DefaultProxyAddress = "127.0.0.1:9050"

	// DefaultRequestTimeout covers proxied requests too, which are
	// much slower than clearnet ones.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxCrawlDepth bounds link distance from a seed.
	DefaultMaxCrawlDepth = 3

	// DefaultMaxConcurrentDownloads bounds simultaneous file transfers.
	DefaultMaxConcurrentDownloads = 3

	// DefaultPageConcurrency bounds simultaneous page fetches.
	DefaultPageConcurrency = 4

	// DefaultMaxPages caps pages fetched per run.
	DefaultMaxPages = 500

	// DefaultMaxRetries is the retry count after the first attempt.
	DefaultMaxRetries = 3

	// DefaultChunkSize is the streaming copy buffer for downloads.
	DefaultChunkSize = 64 * 1024

	// DefaultRequestDelay spaces out page requests.
	DefaultRequestDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies crawldl in HTTP requests.
	DefaultUserAgent = "crawldl/1.0 (+https://github.com/crawldl/crawldl)"

	// DefaultMaxBodySize limits how much of a page body is parsed.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultTorStartupTimeout bounds embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is used for XDG directory paths.
	AppName = "crawldl"
)

// Config holds all options for a crawl-and-download run. A single flat
// struct populated from CLI flags and the optional config file, passed
// through the application by value reference rather than global state.
type Config struct {
	// Seeds are the URLs the crawl starts from.
	Seeds []string

	// DownloadDir is where downloaded files are written.
	DownloadDir string

	// FindOnly discovers and reports file links without downloading.
	FindOnly bool

	// MaxCrawlDepth is the maximum link distance from a seed.
	// 0 means only the seed pages themselves.
	MaxCrawlDepth int

	// MaxPages caps the total pages fetched per run.
	MaxPages int

	// PageConcurrency bounds simultaneous page fetches, independent of
	// download concurrency.
	PageConcurrency int

	// MaxConcurrentDownloads bounds simultaneous file transfers.
	MaxConcurrentDownloads int

	// RequestTimeout applies per HTTP request.
	RequestTimeout time.Duration

	// MaxRetries is the number of retries after the first download
	// attempt for retryable failures.
	MaxRetries int

	// ChunkSize is the streaming copy buffer size in bytes.
	ChunkSize int

	// RequestDelay is the politeness delay between page requests.
	RequestDelay time.Duration

	// EnabledCategories restricts which file categories are collected.
	// Empty means all categories.
	EnabledCategories []string

	// CustomExtensions maps extra extensions to categories, e.g.
	// "log" -> "documents". Unknown category names become "custom".
	CustomExtensions map[string]string

	// SameDomainOnly restricts page crawling to each seed's
	// registrable domain. File candidates are kept regardless.
	SameDomainOnly bool

	// AllowedHosts are extra crawlable hosts despite SameDomainOnly.
	AllowedHosts []string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits page bytes parsed per response.
	MaxBodySize int64

	// UseAnonymityTransport enables the SOCKS5-proxied transport for
	// onion hosts. Without it, onion URLs are refused.
	UseAnonymityTransport bool

	// ProxyAddress is the SOCKS5 proxy in "host:port" form. Used when
	// UseExternalProxy is true.
	ProxyAddress string

	// UseExternalProxy skips the embedded Tor daemon and expects a
	// running proxy at ProxyAddress.
	UseExternalProxy bool

	// TorStartupTimeout bounds embedded Tor bootstrap. Only used when
	// UseExternalProxy is false.
	TorStartupTimeout time.Duration

	// OnionSuffixes are the host suffixes routed through the proxied
	// transport.
	OnionSuffixes []string

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// SaveMetadata writes crawl_metadata.json and found_links.json
	// into the download directory after the run.
	SaveMetadata bool

	// DBDir is the directory of the run history database. Empty
	// disables persistence.
	DBDir string

	// SaveToDB stores the finished report in the history database.
	SaveToDB bool

	// SFTP configures the optional SFTP delivery sink.
	SFTP SFTPSettings

	// NotifyEndpoint receives an HTTP POST per completed download.
	// Empty disables the notification sink.
	NotifyEndpoint string

	// NotifyAuthToken is sent as a bearer token with notifications.
	NotifyAuthToken string

	// ConfigFilePath is the explicit config file location. Empty
	// triggers the .crawldl discovery in cwd then home.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File
}

// SFTPSettings configures the SFTP delivery sink. A zero Host disables it.
type SFTPSettings struct {
	Host               string `yaml:"host,omitempty"`
	Port               int    `yaml:"port,omitempty"`
	Username           string `yaml:"username,omitempty"`
	Password           string `yaml:"password,omitempty"`
	PrivateKeyPath     string `yaml:"privateKeyPath,omitempty"`
	RemoteDir          string `yaml:"remoteDir,omitempty"`
	HostKeyFingerprint string `yaml:"hostKeyFingerprint,omitempty"`
}

// NewConfig creates a Config with default values. Many defaults are
// non-zero, so rely on this constructor rather than the zero value.
func NewConfig() *Config {
	return &Config{
		DownloadDir:            DefaultDownloadDir,
		MaxCrawlDepth:          DefaultMaxCrawlDepth,
		MaxPages:               DefaultMaxPages,
		PageConcurrency:        DefaultPageConcurrency,
		MaxConcurrentDownloads: DefaultMaxConcurrentDownloads,
		RequestTimeout:         DefaultRequestTimeout,
		MaxRetries:             DefaultMaxRetries,
		ChunkSize:              DefaultChunkSize,
		RequestDelay:           DefaultRequestDelay,
		SameDomainOnly:         true,
		UserAgent:              DefaultUserAgent,
		MaxBodySize:            DefaultMaxBodySize,
		ProxyAddress:           DefaultProxyAddress,
		TorStartupTimeout:      DefaultTorStartupTimeout,
		OnionSuffixes:          []string{".onion"},
		SaveMetadata:           true,
	}
}

// XDGDataDir returns the XDG data directory for crawldl.
// On Linux: ~/.local/share/crawldl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawldl.
// On Linux: ~/.config/crawldl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem
// found. Called once after flag parsing, before any network activity.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.DownloadDir == "" {
		return ErrInvalidDownloadDir
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxConcurrentDownloads <= 0 || c.PageConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxCrawlDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	for _, name := range c.EnabledCategories {
		if !classify.IsKnownCategory(name) {
			return ErrUnknownCategory
		}
	}

	return nil
}
