package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "tutorctl",
		Short:         "Operator tasks for the RAG tutor",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newIngestCommand(), newRebuildCommand(), newTokenCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
