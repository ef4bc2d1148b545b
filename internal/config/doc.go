// Package config defines the runtime configuration for crawldl.
package config
