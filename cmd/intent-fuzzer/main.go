// Command intent-fuzzer drives a coverage-guided fuzzing loop against an
// Android activity or broadcast receiver, dispatching intents through a
// device control channel and observing coverage over a TCP socket.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev" // set by build flags
)

var rootCmd = &cobra.Command{
	Use:     "intent-fuzzer",
	Short:   "Coverage-guided fuzzer for Android activities and broadcast receivers",
	Long: `intent-fuzzer issues structured intents to an instrumented Android app,
observes an in-app coverage bitmap over a TCP socket, and evolves a corpus of
inputs that expand edge coverage while recording crashes.`,
	Version: version,
	Args:    cobra.NoArgs,
	RunE:    runFuzzer,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().StringP("coverage-socket-address", "c", "", "address of the coverage agent socket (overrides config)")
	rootCmd.Flags().StringP("adb-command", "a", "", "control-channel binary, or docker://<container> (overrides config, or set ADB_COMMAND)")
	rootCmd.Flags().StringP("intent-config", "i", "", "template file or directory to read intent information from (overrides config)")
	rootCmd.Flags().BoolP("run-corpus", "r", false, "re-run the saved corpus instead of fuzzing")
	rootCmd.Flags().BoolP("trace-native", "t", false, "trace JNI calls instead of Java coverage (run-corpus only)")
	rootCmd.Flags().Bool("no-coverage", false, "disable usage of coverage feedback")
	rootCmd.Flags().String("corpus-dir", "", "directory to store the corpus in (overrides config)")
	rootCmd.Flags().String("crashes-dir", "", "directory to store crashes in (overrides config)")
	rootCmd.Flags().String("traces-dir", "", "directory to store native traces in (overrides config)")
	rootCmd.Flags().String("stats-file", "", "file to store the fuzzer stats in (overrides config)")
	rootCmd.Flags().String("overall-coverage-file", "", "file to store the overall edge count in (overrides config)")
	rootCmd.Flags().Int64("seed", 0, "random seed for mutator sampling (0 = time-based)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
