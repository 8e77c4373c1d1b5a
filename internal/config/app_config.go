// Package config loads snapfeed application configuration from global and
// project-local files and merges the two, with local values taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/snapfeed/internal/utils"
)

const (
	// GlobalConfigDirectoryName is the directory under the user configuration
	// root that holds the global configuration file.
	GlobalConfigDirectoryName = "snapfeed"
	// ConfigFileName is the configuration file name looked up globally and locally.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the project-local configuration file name.
	LocalConfigFileName = ".snapfeed.yaml"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds configuration defaults for a scan.
type ApplicationConfiguration struct {
	Output OutputConfiguration `mapstructure:"output"`
	Paths  PathConfiguration   `mapstructure:"paths"`
	Scan   ScanConfiguration   `mapstructure:"scan"`
	Tokens TokenConfiguration  `mapstructure:"tokens"`
}

// OutputConfiguration configures snapshot destinations.
type OutputConfiguration struct {
	// Destination is a default output file path; empty means standard output.
	Destination string `mapstructure:"destination"`
	// Clipboard additionally copies the document to the system clipboard.
	Clipboard *bool `mapstructure:"clipboard"`
}

// PathConfiguration configures filtering of traversed paths.
type PathConfiguration struct {
	Exclude        []string `mapstructure:"exclude"`
	UseGitignore   *bool    `mapstructure:"use_gitignore"`
	FollowSymlinks *bool    `mapstructure:"follow_symlinks"`
}

// ScanConfiguration configures the traversal worker pool.
type ScanConfiguration struct {
	Workers *int `mapstructure:"workers"`
}

// TokenConfiguration controls the optional token estimate in the header.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if configDirectory, configDirectoryError := os.UserConfigDir(); configDirectoryError == nil && configDirectory != "" {
		globalPath := filepath.Join(configDirectory, GlobalConfigDirectoryName, ConfigFileName)
		globalConfiguration, loadError := loadConfigurationFromPath(globalPath)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(globalConfiguration)
	}

	localPath, resolveError := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveError != nil {
		return ApplicationConfiguration{}, resolveError
	}
	if localPath != "" {
		localConfiguration, loadError := loadConfigurationFromPath(localPath)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(localConfiguration)
	}

	merged.Paths.Exclude = utils.DeduplicatePatterns(merged.Paths.Exclude)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	return filepath.Join(workingDirectory, LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	pathInfo, statError := os.Stat(path)
	if statError != nil {
		if os.IsNotExist(statError) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statError)
	}
	if pathInfo.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readError := reader.ReadInConfig(); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readError)
	}
	var configuration ApplicationConfiguration
	if decodeError := reader.Unmarshal(&configuration); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeError)
	}
	return configuration, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (configuration ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := configuration
	result.Output = result.Output.merge(override.Output)
	result.Paths = result.Paths.merge(override.Paths)
	result.Scan = result.Scan.merge(override.Scan)
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (configuration OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := configuration
	if override.Destination != "" {
		result.Destination = override.Destination
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

func (configuration PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := configuration
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = cloneBool(override.UseGitignore)
	}
	if override.FollowSymlinks != nil {
		result.FollowSymlinks = cloneBool(override.FollowSymlinks)
	}
	return result
}

func (configuration ScanConfiguration) merge(override ScanConfiguration) ScanConfiguration {
	result := configuration
	if override.Workers != nil {
		workerCount := *override.Workers
		result.Workers = &workerCount
	}
	return result
}

func (configuration TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := configuration
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
