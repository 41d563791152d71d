package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "radiodose",
		Short:         "Radiopharmaceutical dose calculation and allocation engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(isotopesCmd())
	rootCmd.AddCommand(decayCmd())
	rootCmd.AddCommand(gateCmd())
	rootCmd.AddCommand(doseCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
