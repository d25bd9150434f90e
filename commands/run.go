package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/mom-pipeline/minutes"
	"github.com/maastricht-university/mom-pipeline/orchestrator"
	"github.com/maastricht-university/mom-pipeline/registry"
)

var (
	flagSpeakers int
	flagSegments string
)

var runCmd = &cobra.Command{
	Use:   "run <audio>",
	Short: "Diarize a recording and print the labeled transcript",
	Long: `Run the diarization pipeline on one recording.

The transcript is printed to stdout. Unless --output is empty the
transcript, the diarization details and any minutes are also written to a
new session directory under the output root.

Example:
  mom run -k 2 --language en --minutes standup.m4a`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&flagSpeakers, "speakers", "k", 0, "number of speakers (default diarization.num_speakers)")
	f.StringVar(&flagSegments, "segments", "", "replay recognizer segments from a JSON file")
	f.String("model-size", "", "recognizer model size (tiny, base, small, medium, large)")
	f.String("language", "", "recognizer language hint")
	f.StringP("output", "o", "", "output root for session artifacts")
	f.Bool("minutes", false, "generate minutes of meeting")

	_ = v.BindPFlag("recognizer.model_size", f.Lookup("model-size"))
	_ = v.BindPFlag("recognizer.language", f.Lookup("language"))
	_ = v.BindPFlag("paths.outputs", f.Lookup("output"))
	_ = v.BindPFlag("minutes.enabled", f.Lookup("minutes"))
}

func runPipeline(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(conf.Pipeline.LogLvl, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(conf, log)
	defer reg.Close()

	var opts []orchestrator.Option
	if conf.Minutes.Enabled {
		g, err := minutes.NewOpenAI(minutes.Config{
			APIKey:    conf.Minutes.APIKey,
			BaseURL:   conf.Minutes.BaseURL,
			Model:     conf.Minutes.Model,
			Language:  conf.Minutes.Language,
			MaxTokens: conf.Minutes.MaxTokens,
		})
		if err != nil {
			return err
		}
		opts = append(opts, orchestrator.WithMinutes(g))
	}

	p, err := orchestrator.NewPipeline(conf, reg, log, opts...)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, orchestrator.Request{
		AudioPath:    args[0],
		Speakers:     flagSpeakers,
		SegmentsFile: flagSegments,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, res.Text)
	if res.Minutes != "" {
		fmt.Fprintf(out, "\n%s\n", res.Minutes)
	}
	if res.OutputDir != "" {
		log.WithField("dir", res.OutputDir).Info("artifacts written")
	}
	return nil
}
