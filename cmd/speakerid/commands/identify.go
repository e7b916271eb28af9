package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/cmd/speakerid/internal/config"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

var (
	identifyTop       int
	identifyThreshold float64
)

var identifyCmd = &cobra.Command{
	Use:   "identify <audio>",
	Short: "Rank enrolled speakers against a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if identifyTop <= 0 {
			return fmt.Errorf("--top must be positive, got %d", identifyTop)
		}
		var o config.Overrides
		if cmd.Flags().Changed("threshold") {
			o.Threshold = &identifyThreshold
		}
		rt, err := openRuntime(cmd.Context(), o)
		if err != nil {
			return err
		}
		defer rt.Close()

		cands, err := rt.Identifier.Identify(cmd.Context(), voiceprint.AudioInput(args[0]), identifyTop)
		if err != nil {
			return err
		}
		return output(cmd, identifyResult{Probe: args[0], Candidates: cands})
	},
}

func init() {
	identifyCmd.Flags().IntVar(&identifyTop, "top", 5, "number of candidates to show")
	identifyCmd.Flags().Float64Var(&identifyThreshold, "threshold", voiceprint.DefaultThreshold, "decision threshold")
	rootCmd.AddCommand(identifyCmd)
}

type identifyResult struct {
	Probe      string                 `json:"probe" yaml:"probe"`
	Candidates []voiceprint.Candidate `json:"candidates" yaml:"candidates"`
}

func (r identifyResult) Text(s cli.Styles) string {
	if len(r.Candidates) == 0 {
		return "No enrolled speakers."
	}
	var sb strings.Builder
	for i, c := range r.Candidates {
		if i > 0 {
			sb.WriteByte('\n')
		}
		mark := s.Reject.Render("✗")
		if c.SameSpeaker {
			mark = s.Accept.Render("✓")
		}
		fmt.Fprintf(&sb, "%d. %s %s %s", i+1, mark, s.Label.Render(c.SpeakerID), cli.FormatScore(c.Score))
		if c.Label != "" {
			sb.WriteString(" " + s.Dim.Render(c.Label))
		}
	}
	return sb.String()
}
