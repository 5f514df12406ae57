package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "petsoftctl",
		Short:         "Administer a PetSoft installation",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(createUserCmd())
	rootCmd.AddCommand(grantAccessCmd())
	rootCmd.AddCommand(listPetsCmd())
	rootCmd.AddCommand(listImagesCmd())

	return rootCmd
}
