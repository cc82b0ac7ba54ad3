package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NileshSanyal/supermart-backend/internal/password"
)

var envFile string

// NewRootCmd creates the root command. Running it without a subcommand
// starts the HTTP server.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "supermart",
		Short:        "Supermart API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// NewHashPasswordCmd prints an argon2id hash, for seeding accounts by hand.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the stored form of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := password.NewArgon2idHasher(password.DefaultParams).Hash(args[0])
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			cmd.Println(hash)
			return nil
		},
	}
}
