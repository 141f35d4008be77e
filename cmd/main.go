package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geoplot",
	Short: "geocode address lists and plot them on a map",
	Long: `
geoplot takes a CSV of addresses (UniqueID + Address, or UniqueID + Street, City,
State, Country, PostalCode), resolves every row through a geocoding provider and
shows the result as map markers with an annotated CSV download.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errReported marks a failure whose message was already shown to the user.
var errReported = errors.New("reported")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
