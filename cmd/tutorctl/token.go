package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rrens/rag-tutor/internal/security"
)

type tokenOptions struct {
	Options
	Service string
}

func newTokenCommand() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a service token for the chat gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			token, err := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).GenerateServiceToken(opts.Service)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringVarP(&opts.Service, "service", "s", "line-gateway", "service name carried in the token")
	return cmd
}
