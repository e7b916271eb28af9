package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/cmd/speakerid/internal/config"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

var (
	verifySpeaker   string
	verifyTrials    string
	verifyThreshold float64
)

var verifyCmd = &cobra.Command{
	Use:   "verify <audio-a> [audio-b]",
	Short: "Decide whether two recordings come from the same speaker",
	Long: `Compare two recordings, or one recording against an enrolled speaker.

Examples:
  speakerid verify a.wav b.wav
  speakerid verify probe.wav --speaker alice
  speakerid verify --trials trials.yaml -o json`,
	Args: func(cmd *cobra.Command, args []string) error {
		switch {
		case verifyTrials != "":
			return cobra.NoArgs(cmd, args)
		case verifySpeaker != "":
			return cobra.ExactArgs(1)(cmd, args)
		default:
			return cobra.ExactArgs(2)(cmd, args)
		}
	},
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifySpeaker, "speaker", "", "compare against this enrolled speaker")
	verifyCmd.Flags().StringVar(&verifyTrials, "trials", "", "YAML or JSON file of trials to run")
	verifyCmd.Flags().Float64Var(&verifyThreshold, "threshold", voiceprint.DefaultThreshold, "decision threshold")
	rootCmd.AddCommand(verifyCmd)
}

// verifyResult is one verification as printed by the CLI.
type verifyResult struct {
	A           string  `json:"a" yaml:"a"`
	B           string  `json:"b,omitempty" yaml:"b,omitempty"`
	Speaker     string  `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Score       float64 `json:"score" yaml:"score"`
	SameSpeaker bool    `json:"same_speaker" yaml:"same_speaker"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r verifyResult) target() string {
	if r.Speaker != "" {
		return "speaker " + r.Speaker
	}
	return r.B
}

func (r verifyResult) Text(s cli.Styles) string {
	if r.Error != "" {
		return fmt.Sprintf("%s vs %s: %s", r.A, r.target(), s.Reject.Render("error: "+r.Error))
	}
	return fmt.Sprintf("%s vs %s: %s %s",
		r.A, r.target(),
		s.Verdict(r.SameSpeaker),
		s.Dim.Render(fmt.Sprintf("(score %s, threshold %s)", cli.FormatScore(r.Score), cli.FormatScore(r.Threshold))))
}

type verifyBatch []verifyResult

func (b verifyBatch) Text(s cli.Styles) string {
	lines := make([]string, len(b))
	for i, r := range b {
		lines[i] = r.Text(s)
	}
	return strings.Join(lines, "\n")
}

func runVerify(cmd *cobra.Command, args []string) error {
	var o config.Overrides
	if cmd.Flags().Changed("threshold") {
		o.Threshold = &verifyThreshold
	}
	rt, err := openRuntime(cmd.Context(), o)
	if err != nil {
		return err
	}
	defer rt.Close()

	if verifyTrials != "" {
		return runTrials(cmd, rt.Verifier)
	}

	r := verifyResult{A: args[0], Speaker: verifySpeaker}
	if verifySpeaker == "" {
		r.B = args[1]
	}
	if err := verifyOne(cmd.Context(), rt.Verifier, &r); err != nil {
		return err
	}
	return output(cmd, r)
}

func verifyOne(ctx context.Context, v *voiceprint.Verifier, r *verifyResult) error {
	other := voiceprint.AudioInput(r.B)
	if r.Speaker != "" {
		other = voiceprint.EnrolledInput(r.Speaker)
	}
	res, err := v.Verify(ctx, voiceprint.AudioInput(r.A), other)
	if err != nil {
		return err
	}
	r.Score, r.SameSpeaker, r.Threshold = res.Score, res.SameSpeaker, res.Threshold
	return nil
}

// runTrials runs every trial, reporting failures inline. The command fails
// if any trial failed.
func runTrials(cmd *cobra.Command, v *voiceprint.Verifier) error {
	list, err := cli.LoadTrials(verifyTrials)
	if err != nil {
		return err
	}
	batch := make(verifyBatch, len(list.Trials))
	var failed int
	for i, t := range list.Trials {
		batch[i] = verifyResult{A: t.A, B: t.B, Speaker: t.Speaker, Threshold: v.Threshold()}
		if err := verifyOne(cmd.Context(), v, &batch[i]); err != nil {
			batch[i].Error = err.Error()
			failed++
		}
	}
	if err := output(cmd, batch); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d trials failed", failed, len(batch))
	}
	return nil
}
