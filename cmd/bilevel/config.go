package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/esimov/bilevel"
)

// Config holds the settings of a conversion run, merged from flags,
// environment variables and the optional configuration file.
type Config struct {
	// Source is the image file path, URL or "-" for stdin.
	Source string `yaml:"in"`

	// Output is the destination of the binary image; "-" writes to stdout.
	Output string `yaml:"out"`

	// Gray is the optional destination of the intermediate grayscale image.
	Gray string `yaml:"gray"`

	// Threshold is the binarization cutoff (default 128).
	Threshold int `yaml:"threshold"`

	// Workers is the number of row bands converted concurrently (default 1).
	Workers int `yaml:"workers"`

	// Preview shows every produced image in a preview window.
	Preview bool `yaml:"preview"`

	// Viewer replaces the preview window with an external viewer command line,
	// "system" selects the platform default viewer.
	Viewer string `yaml:"viewer,omitempty"`
}

// configFrom reads the configuration keys out of v.
func configFrom(v *viper.Viper) Config {
	return Config{
		Source:    v.GetString("in"),
		Output:    v.GetString("out"),
		Gray:      v.GetString("gray"),
		Threshold: v.GetInt("threshold"),
		Workers:   v.GetInt("workers"),
		Preview:   v.GetBool("preview"),
		Viewer:    v.GetString("viewer"),
	}
}

// setDefaults registers the default value of every configuration key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("in", "")
	v.SetDefault("out", "")
	v.SetDefault("gray", "")
	v.SetDefault("threshold", bilevel.DefaultThreshold)
	v.SetDefault("workers", 1)
	v.SetDefault("preview", false)
	v.SetDefault("viewer", "")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bilevel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bilevel"))
		}
	}

	viper.SetEnvPrefix("BILEVEL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(configFrom(viper.GetViper()))
		if err != nil {
			return fmt.Errorf("could not encode the configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
