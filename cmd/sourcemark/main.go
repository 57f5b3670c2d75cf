// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sourcemark CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the sourcemark CLI.
var rootCmd = &cobra.Command{
	Use:   "sourcemark",
	Short: "Extract and index inline source citations in text documents",
	Long: `sourcemark rewrites documents that carry inline "Source: ..." citations.
It replaces each citation with a numbered reference marker, appends a
references section, and maintains a searchable index of every extracted
source.

Each operation is a subcommand: rewrite processes documents, refs manages
the reference index, and fetch downloads remote documents for processing.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sourcemark.yaml or ~/.config/sourcemark/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sourcemark")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sourcemark"))
		}
	}

	viper.SetEnvPrefix("SOURCEMARK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
