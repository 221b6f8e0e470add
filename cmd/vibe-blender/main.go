// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command vibe-blender turns natural language prompts into rendered
// Blender scenes through an iterative agent pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vibe-blender",
		Short: "Text-to-3D agent pipeline for Blender",
		Long:  "vibe-blender takes a natural language prompt, generates a Blender Python script via LLM, renders it headlessly, and refines it with vision-based critique.",
	}

	// Global flags.
	rootCmd.PersistentFlags().String("model", "", "Bedrock model ID")
	rootCmd.PersistentFlags().String("region", "", "AWS region for Bedrock")
	rootCmd.PersistentFlags().String("profile", "", "AWS profile")
	rootCmd.PersistentFlags().String("blender", "blender", "Path to the Blender binary")
	rootCmd.PersistentFlags().StringP("output", "o", "output", "Output directory")
	rootCmd.PersistentFlags().Int("max-iterations", 5, "Maximum refine loop iterations")
	rootCmd.PersistentFlags().Int("timeout", 300, "Blender execution timeout in seconds")
	rootCmd.PersistentFlags().Bool("no-history", false, "Disable script snapshot history")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")

	// Bind flags to viper.
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("blender", rootCmd.PersistentFlags().Lookup("blender"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("max-iterations", rootCmd.PersistentFlags().Lookup("max-iterations"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("no-history", rootCmd.PersistentFlags().Lookup("no-history"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Env vars: VIBE_BLENDER_MODEL, VIBE_BLENDER_REGION, etc.
	viper.SetEnvPrefix("VIBE_BLENDER")
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".vibe-blender")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print vibe-blender version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vibe-blender %s\n", version)
		},
	}
}
