/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	devMode      bool
	disableJudge bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gazette",
	Short: "Gazette builds and delivers personalized news digests.",
	Long: `Gazette aggregates headlines, alerts, events, images, and weather from
each reader's selected sources, curates them (repeat suppression, substance
filtering, semantic dedup), and hands one finished issue per destination to
the delivery layer.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gazette.yaml)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "dev mode: no cache writes, failures re-raised")
	rootCmd.PersistentFlags().BoolVar(&disableJudge, "disable-judge", false, "skip the language-model judge (no API costs)")
}
