// Copyright 2025 bitjungle - Rune Mathisen. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.
// The author respectfully requests that it not be used for
// military, warfare, or surveillance applications.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lsstgo/diffimkernel/internal/version"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "diffimsolve",
	Short: "Image-difference kernel solver",
	Long: `diffimsolve fits a convolution kernel and background that maps a
template image onto a science image, minimizing the variance-weighted
difference between them.

It implements the stamp builder, linear and regularized solvers, spatial
kernel aggregation, and candidate orchestration used to build
Alard-Lupton style difference-imaging kernels.`,
	Version: version.Get().Short(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose flag; no subcommand changes its output when it is set")
}
