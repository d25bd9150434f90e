package commands

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/mom-pipeline/config"
)

var (
	cfgFile string

	// v collects defaults, MOM_* environment overrides, the config file
	// and bound flags, in increasing precedence.
	v = config.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mom",
	Short: "Speaker-attributed meeting transcripts and minutes",
	Long: `mom turns a meeting recording into a speaker-attributed transcript.

The recording is normalized to 16 kHz mono, transcribed by a local
recognizer, and every utterance is embedded and clustered into a fixed
number of speakers. The labeled transcript can optionally be summarized
into minutes of meeting.

Configuration is read from config/<CONFIG_ENV>/config.yaml (or --config)
and can be overridden with MOM_<SECTION>_<KEY> environment variables.

Examples:
  # Diarize a recording with three speakers
  mom run -k 3 meeting.mp3

  # Re-cluster saved recognizer output
  mom run -k 2 --segments segments.json meeting.wav

  # Print the effective configuration
  mom config show`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/$CONFIG_ENV/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("pipeline.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Root, error) {
	return config.Load(v, cfgFile)
}

func newLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l, nil
}
