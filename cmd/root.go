/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "admin-apiserver",
	Short: "Administrative backend for moderator account management",
	Long: `admin-apiserver is the administrative backend: it authenticates
users with password and JWT, and lets admin-tier users manage moderator
accounts. Persistence runs against PostgreSQL with an automatic fallback
to an embedded SQLite database.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
