package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/speakerid/pkg/voiceprint"
)

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })
	globalConfig, configLoadErr = nil, nil

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	resetFlags(rootCmd)
	return out.String(), err
}

type env struct {
	dir        string
	config     string
	embeddings string
}

func newEnv(t *testing.T) *env {
	dir := t.TempDir()
	return &env{
		dir:        dir,
		config:     filepath.Join(dir, "config.yaml"),
		embeddings: filepath.Join(dir, "embeddings"),
	}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return run(t, append([]string{"--config", e.config, "--embeddings-dir", e.embeddings}, args...)...)
}

// toneWAV writes a 16 kHz mono tone with an overtone.
func (e *env) toneWAV(t *testing.T, name string, freq float64, n int) string {
	t.Helper()
	samples := make([]int, n)
	for i := range samples {
		x := 2 * math.Pi * freq * float64(i) / 16000
		samples[i] = int(8000*math.Sin(x) + 2000*math.Sin(3*x))
	}
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "speakerid dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestEnrollVerifyLifecycle(t *testing.T) {
	e := newEnv(t)
	alice := e.toneWAV(t, "alice.wav", 220, 16000)
	probe := e.toneWAV(t, "probe.wav", 220, 24000)

	out, err := e.run(t, "enroll", alice, "-o", "json")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	var en voiceprint.Enrollment
	if err := json.Unmarshal([]byte(out), &en); err != nil {
		t.Fatalf("decode enroll output %q: %v", out, err)
	}
	if en.SpeakerID != "alice" || en.Path != "alice.npy" || en.Record.Hash == "" {
		t.Errorf("enrollment = %+v", en)
	}
	if _, err := os.Stat(filepath.Join(e.embeddings, "alice.npy")); err != nil {
		t.Errorf("vector file missing: %v", err)
	}

	_, err = e.run(t, "enroll", alice, "--no-overwrite")
	if !errors.Is(err, voiceprint.ErrAlreadyEnrolled) {
		t.Errorf("enroll --no-overwrite = %v, want ErrAlreadyEnrolled", err)
	}

	out, err = e.run(t, "verify", probe, "--speaker", "alice", "-o", "json")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	var res verifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode verify output %q: %v", out, err)
	}
	if !res.SameSpeaker || res.Speaker != "alice" {
		t.Errorf("verify = %+v", res)
	}

	out, err = e.run(t, "verify", alice, probe)
	if err != nil {
		t.Fatalf("verify files: %v", err)
	}
	if !strings.Contains(out, "same speaker") {
		t.Errorf("text verdict = %q", out)
	}

	out, err = e.run(t, "list", "-o", "json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []speakerView
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode list %q: %v", out, err)
	}
	if len(list) != 1 || list[0].SpeakerID != "alice" || list[0].Label == "" {
		t.Errorf("list = %+v", list)
	}

	out, err = e.run(t, "identify", probe, "--top", "1")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if !strings.Contains(out, "1. ") || !strings.Contains(out, "✓") || !strings.Contains(out, "alice") {
		t.Errorf("identify output = %q", out)
	}

	if _, err := e.run(t, "delete", "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = e.run(t, "show", "alice")
	if code := ExitCode(err); code != ExitNotFound {
		t.Errorf("show after delete exit code = %d (%v)", code, err)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	e := newEnv(t)
	a := e.toneWAV(t, "a.wav", 220, 16000)
	_, err := e.run(t, "verify", a, filepath.Join(e.dir, "missing.wav"))
	if code := ExitCode(err); code != ExitLoad {
		t.Errorf("exit code = %d (%v), want %d", code, err, ExitLoad)
	}
}

func TestVerifyTrials(t *testing.T) {
	e := newEnv(t)
	e.toneWAV(t, "a.wav", 220, 16000)
	e.toneWAV(t, "b.wav", 220, 20000)
	trials := filepath.Join(e.dir, "trials.yaml")
	data := "trials:\n  - {a: a.wav, b: b.wav}\n  - {a: a.wav, b: nope.wav}\n"
	if err := os.WriteFile(trials, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := e.run(t, "verify", "--trials", trials, "-o", "json")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 trials failed") {
		t.Errorf("err = %v", err)
	}
	var batch []verifyResult
	if err := json.Unmarshal([]byte(out), &batch); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(batch) != 2 || !batch[0].SameSpeaker || batch[1].Error == "" {
		t.Errorf("batch = %+v", batch)
	}
}

func TestEnrollDir(t *testing.T) {
	e := newEnv(t)
	voices := filepath.Join(e.dir, "voices")
	if err := os.Mkdir(voices, 0o755); err != nil {
		t.Fatal(err)
	}
	e.toneWAV(t, filepath.Join("voices", "carol.wav"), 300, 16000)
	e.toneWAV(t, filepath.Join("voices", "dave.wav"), 500, 16000)
	if err := os.WriteFile(filepath.Join(voices, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := e.run(t, "enroll-dir", voices); err != nil {
		t.Fatalf("enroll-dir: %v", err)
	}
	out, err := e.run(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "carol") || !strings.Contains(out, "dave") || strings.Contains(out, "notes") {
		t.Errorf("list = %q", out)
	}
}

func TestConfigContexts(t *testing.T) {
	e := newEnv(t)
	if _, err := run(t, "--config", e.config, "config", "init", "local", "--threshold", "0.5"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := run(t, "--config", e.config, "config", "init", "prod", "--storage", "s3", "--bucket", "voices"); err != nil {
		t.Fatalf("init prod: %v", err)
	}

	out, err := run(t, "--config", e.config, "config", "get-contexts")
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "local" && fields[0] != "*" {
			t.Errorf("first context should be current:\n%s", out)
		}
	}
	if !strings.Contains(out, "prod") || !strings.Contains(out, "s3") {
		t.Errorf("get-contexts = %q", out)
	}

	if _, err := run(t, "--config", e.config, "config", "use-context", "prod"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "--config", e.config, "config", "show", "-o", "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bucket: voices") {
		t.Errorf("show = %q", out)
	}

	if _, err := run(t, "--config", e.config, "config", "use-context", "staging"); err == nil {
		t.Error("use-context of unknown context should fail")
	}
	if _, err := run(t, "--config", e.config, "--context", "staging", "list"); err == nil {
		t.Error("unknown --context should fail")
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), ExitError},
		{&voiceprint.LoadError{Path: "x.wav", Err: os.ErrNotExist}, ExitLoad},
		{fmt.Errorf("wrap: %w", voiceprint.ErrNotFound), ExitNotFound},
		{&voiceprint.MismatchError{Field: "dimension", A: "3", B: "4"}, ExitMismatch},
		{&voiceprint.EnrollmentError{SpeakerID: "a", Stage: voiceprint.StageExtract, Err: voiceprint.ErrDegenerateEmbedding}, ExitMismatch},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
