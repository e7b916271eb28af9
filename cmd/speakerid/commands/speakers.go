package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/cmd/speakerid/internal/config"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List enrolled speakers",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), config.Overrides{})
		if err != nil {
			return err
		}
		defer rt.Close()

		list, err := rt.Store.List(cmd.Context())
		if err != nil {
			return err
		}
		out := make(speakerList, len(list))
		for i, m := range list {
			out[i] = newSpeakerView(m)
		}
		return output(cmd, out)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <speaker-id>",
	Short: "Show an enrolled speaker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), config.Overrides{})
		if err != nil {
			return err
		}
		defer rt.Close()

		rec, err := rt.Store.Record(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(cmd, newSpeakerView(rec.Metadata))
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <speaker-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an enrolled speaker",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), config.Overrides{})
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.Enroller.Unenroll(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted speaker %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, showCmd, deleteCmd)
}

// speakerView is the display form of an enrolled record.
type speakerView struct {
	voiceprint.Metadata `yaml:",inline"`
	Label               string `json:"label,omitempty" yaml:"label,omitempty"`
}

func newSpeakerView(m voiceprint.Metadata) speakerView {
	return speakerView{Metadata: m, Label: m.Label()}
}

func (v speakerView) Text(s cli.Styles) string {
	var sb strings.Builder
	row := func(k, val string) {
		if val != "" {
			fmt.Fprintf(&sb, "%-18s %s\n", s.Label.Render(k+":"), val)
		}
	}
	row("speaker", v.SpeakerID)
	row("record", v.RecordID)
	row("label", v.Label)
	row("source", v.Source)
	row("extractor", v.ExtractorVersion)
	row("dimension", fmt.Sprint(v.Dimension))
	if !v.CreatedAt.IsZero() {
		row("created", v.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

type speakerList []speakerView

func (l speakerList) Text(s cli.Styles) string {
	if len(l) == 0 {
		return "No enrolled speakers."
	}
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SPEAKER\tLABEL\tEXTRACTOR\tCREATED")
	for _, v := range l {
		created := ""
		if !v.CreatedAt.IsZero() {
			created = v.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.SpeakerID, v.Label, v.ExtractorVersion, created)
	}
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}
