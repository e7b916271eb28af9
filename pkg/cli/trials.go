package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Trial is one pair of a batch verification. Exactly one of B and Speaker
// is set.
type Trial struct {
	A       string `yaml:"a" json:"a"`
	B       string `yaml:"b,omitempty" json:"b,omitempty"`
	Speaker string `yaml:"speaker,omitempty" json:"speaker,omitempty"`
}

// TrialList is the file format of "speakerid verify --trials".
//
//	trials:
//	  - {a: alice_1.wav, b: alice_2.wav}
//	  - {a: unknown.wav, speaker: bob}
type TrialList struct {
	Trials []Trial `yaml:"trials" json:"trials"`
}

// LoadTrials reads and validates a trial list. Relative audio paths are
// resolved against the directory of the list file.
func LoadTrials(path string) (*TrialList, error) {
	var list TrialList
	if err := LoadFile(path, &list); err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	for i := range list.Trials {
		t := &list.Trials[i]
		if t.A == "" || (t.B == "") == (t.Speaker == "") {
			return nil, fmt.Errorf("%s: trial %d needs a and exactly one of b or speaker", path, i+1)
		}
		t.A = resolve(base, t.A)
		if t.B != "" {
			t.B = resolve(base, t.B)
		}
	}
	return &list, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// LoadFile loads a YAML or JSON file into v
func LoadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseFile(data, path, v)
}

// ParseFile parses data based on the file extension. Unknown extensions are
// tried as YAML, which also accepts JSON.
func ParseFile(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return nil
}
