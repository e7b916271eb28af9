package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/speakerid/cmd/speakerid/internal/config"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

var (
	enrollID          string
	enrollNoOverwrite bool
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <audio>",
	Short: "Enroll a speaker from reference audio",
	Long: `Extract an embedding from reference audio and store it.

The speaker id defaults to the file name without extension. An existing
speaker is replaced unless --no-overwrite is given.

Examples:
  speakerid enroll recordings/alice.wav
  speakerid enroll ref.wav --id bob --no-overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), enrollOverrides())
		if err != nil {
			return err
		}
		defer rt.Close()

		en, err := rt.Enroller.Enroll(cmd.Context(), args[0], enrollID)
		if err != nil {
			return err
		}
		return output(cmd, enrollResult{Enrollment: *en})
	},
}

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <dir>",
	Short: "Enroll every recording in a directory",
	Long: `Enroll each .wav, .pcm and .raw file in a directory, using the file
name as the speaker id. Failures are reported per file.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	enrollCmd.Flags().StringVar(&enrollID, "id", "", "speaker id (default: file name without extension)")
	for _, c := range []*cobra.Command{enrollCmd, enrollDirCmd} {
		c.Flags().BoolVar(&enrollNoOverwrite, "no-overwrite", false, "fail instead of replacing an enrolled speaker")
		rootCmd.AddCommand(c)
	}
}

func enrollOverrides() config.Overrides {
	var o config.Overrides
	if enrollNoOverwrite {
		o.Overwrite = voiceprint.OverwriteReject.String()
	}
	return o
}

type enrollResult struct {
	voiceprint.Enrollment `yaml:",inline"`
	Source                string `json:"source,omitempty" yaml:"source,omitempty"`
	Error                 string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r enrollResult) Text(s cli.Styles) string {
	if r.Error != "" {
		return fmt.Sprintf("%s: %s", r.Source, s.Reject.Render("error: "+r.Error))
	}
	verb := "enrolled"
	if r.Replaced {
		verb = "replaced"
	}
	line := fmt.Sprintf("%s %s -> %s", s.Accept.Render(verb), s.Label.Render(r.SpeakerID), r.Path)
	if label := r.Record.Label(); label != "" {
		line += " " + s.Dim.Render(label)
	}
	return line
}

type enrollBatch []enrollResult

func (b enrollBatch) Text(s cli.Styles) string {
	lines := make([]string, len(b))
	for i, r := range b {
		lines[i] = r.Text(s)
	}
	return strings.Join(lines, "\n")
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".pcm", ".raw":
		return true
	}
	return false
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(args[0])
	if err != nil {
		return err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && isAudioFile(e.Name()) {
			paths = append(paths, filepath.Join(args[0], e.Name()))
		}
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		return fmt.Errorf("no audio files in %s", args[0])
	}

	rt, err := openRuntime(cmd.Context(), enrollOverrides())
	if err != nil {
		return err
	}
	defer rt.Close()

	batch := make(enrollBatch, len(paths))
	var g errgroup.Group
	g.SetLimit(rt.Settings.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			batch[i].Source = path
			en, err := rt.Enroller.Enroll(cmd.Context(), path, "")
			if err != nil {
				slog.Debug("enroll failed", "path", path, "err", err)
				batch[i].Error = err.Error()
				return nil
			}
			batch[i].Enrollment = *en
			return nil
		})
	}
	g.Wait()

	if err := output(cmd, batch); err != nil {
		return err
	}
	var failed int
	for _, r := range batch {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d enrollments failed", failed, len(batch))
	}
	return nil
}
