package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds per-host overrides for crawl behavior.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with requests to this host.
	// Format: "name=value" or "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for seeds on this host.
	// Zero keeps the global value.
	Depth int `yaml:"depth,omitempty"`

	// Delay overrides the global request delay for this host.
	// Zero keeps the global value.
	Delay time.Duration `yaml:"delay,omitempty"`
}

// UnmarshalYAML accepts Go duration syntax ("1s", "500ms") for the
// delay field instead of raw nanoseconds.
func (sc *SiteConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		Cookie  string            `yaml:"cookie"`
		Headers map[string]string `yaml:"headers"`
		Depth   int               `yaml:"depth"`
		Delay   string            `yaml:"delay"`
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	sc.Cookie = r.Cookie
	sc.Headers = r.Headers
	sc.Depth = r.Depth
	sc.Delay = 0
	if r.Delay != "" {
		d, err := time.ParseDuration(r.Delay)
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", r.Delay, err)
		}
		sc.Delay = d
	}

	return nil
}

// NotifySettings configures the HTTP notification sink in the config
// file. An empty Endpoint disables it.
type NotifySettings struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AuthToken string `yaml:"authToken,omitempty"`
}

// File is the structure of the .crawldl configuration file.
type File struct {
	// Sites maps hostnames to their overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every host unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// SFTP configures the SFTP delivery sink. Credentials belong in
	// the config file rather than on the command line.
	SFTP SFTPSettings `yaml:"sftp,omitempty"`

	// Notify configures the per-download HTTP notification sink.
	Notify NotifySettings `yaml:"notify,omitempty"`
}

// GetSiteConfig returns the merged configuration for a hostname:
// defaults overlaid with the host's own entry.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if site, ok := cf.Sites[host]; ok {
		if site.Cookie != "" {
			result.Cookie = site.Cookie
		}
		if site.Depth != 0 {
			result.Depth = site.Depth
		}
		if site.Delay != 0 {
			result.Delay = site.Delay
		}
		if len(site.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range site.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
