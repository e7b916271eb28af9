package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

type textSample struct {
	sample
}

func (s textSample) Text(st Styles) string {
	return s.Name + " " + FormatScore(s.Score)
}

func TestOutputFormats(t *testing.T) {
	v := sample{Name: "alice", Score: 0.5}

	var buf bytes.Buffer
	if err := Output(v, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	var back sample
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil || back != v {
		t.Errorf("json output = %q (%v)", buf.String(), err)
	}

	buf.Reset()
	if err := Output(v, OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "name: alice") {
		t.Errorf("yaml output = %q", buf.String())
	}

	// Text falls back to YAML without a Texter.
	buf.Reset()
	if err := Output(v, OutputOptions{Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "score: 0.5") {
		t.Errorf("text fallback = %q", buf.String())
	}

	buf.Reset()
	if err := Output(textSample{v}, OutputOptions{Format: FormatText, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "alice 0.5000\n" {
		t.Errorf("text output = %q", got)
	}

	if err := Output(v, OutputOptions{Format: "xml", Writer: &buf}); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{
		"":     FormatText,
		"text": FormatText,
		"yaml": FormatYAML,
		"json": FormatJSON,
	} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("table"); err == nil {
		t.Error("table should be rejected")
	}
}

func TestVerdict(t *testing.T) {
	s := PlainStyles()
	if got := s.Verdict(true); got != "✓ same speaker" {
		t.Errorf("Verdict(true) = %q", got)
	}
	if got := s.Verdict(false); got != "✗ different speaker" {
		t.Errorf("Verdict(false) = %q", got)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{850 * time.Millisecond, "850ms"},
		{2400 * time.Millisecond, "2.4s"},
		{63 * time.Second, "1m3.0s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
	if got := FormatScore(0.123456); got != "0.1235" {
		t.Errorf("FormatScore = %q", got)
	}
}

func TestLoadTrials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trials.yaml")
	data := "trials:\n  - {a: a1.wav, b: /abs/a2.wav}\n  - {a: probe.wav, speaker: bob}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := LoadTrials(path)
	if err != nil {
		t.Fatalf("LoadTrials: %v", err)
	}
	if len(list.Trials) != 2 {
		t.Fatalf("got %d trials", len(list.Trials))
	}
	if got := list.Trials[0].A; got != filepath.Join(dir, "a1.wav") {
		t.Errorf("relative path not resolved: %q", got)
	}
	if got := list.Trials[0].B; got != "/abs/a2.wav" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := list.Trials[1].Speaker; got != "bob" {
		t.Errorf("Speaker = %q", got)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"trials":[{"a":"x.wav","b":"y.wav","speaker":"bob"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrials(bad); err == nil {
		t.Error("trial with both b and speaker should be rejected")
	}
}
