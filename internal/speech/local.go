package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Local synthesizes speech with an installed engine and never touches the
// network. espeak-ng and espeak write WAV to stdout; macOS say writes AIFF.
type Local struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	tempDir  string
}

func NewLocal() *Local {
	return &Local{
		lookPath: exec.LookPath,
		run:      runCommand,
		tempDir:  os.TempDir(),
	}
}

func (s *Local) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := validate(req); err != nil {
		return Clip{}, err
	}

	for _, engine := range []string{"espeak-ng", "espeak"} {
		path, err := s.lookPath(engine)
		if err != nil {
			continue
		}
		out, err := s.run(ctx, path, "--stdout", req.Text)
		if err != nil {
			return Clip{}, fmt.Errorf("%s failed: %w", engine, err)
		}
		return Clip{Data: out, Format: "wav"}, nil
	}

	if path, err := s.lookPath("say"); err == nil {
		tmp, err := os.CreateTemp(s.tempDir, "speech-*.aiff")
		if err != nil {
			return Clip{}, fmt.Errorf("failed to create temp file: %w", err)
		}
		name := tmp.Name()
		tmp.Close()
		defer os.Remove(name)

		if _, err := s.run(ctx, path, "-o", name, req.Text); err != nil {
			return Clip{}, fmt.Errorf("say failed: %w", err)
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return Clip{}, fmt.Errorf("failed to read say output: %w", err)
		}
		return Clip{Data: data, Format: filepath.Ext(name)[1:]}, nil
	}

	return Clip{}, fmt.Errorf("no local speech engine found (install espeak-ng)")
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
