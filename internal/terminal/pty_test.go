package terminal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	terrors "github.com/piyushgupta53/termbridge/internal/errors"
	"github.com/piyushgupta53/termbridge/internal/types"
)

func TestSpawn_MissingWorkingDir(t *testing.T) {
	t.Parallel()

	_, err := Spawn(&PTYConfig{
		WorkingDir: filepath.Join(t.TempDir(), "does-not-exist"),
		Dimensions: types.Dimensions{Cols: 80, Rows: 24},
	})

	var spawnErr *terrors.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Spawn() error = %v, want SpawnError", err)
	}
	if spawnErr.Reason != terrors.SpawnReasonBadWorkdir {
		t.Errorf("Reason = %q, want %q", spawnErr.Reason, terrors.SpawnReasonBadWorkdir)
	}
}

func TestSpawn_WorkingDirIsFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "regular-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := Spawn(&PTYConfig{
		WorkingDir: file,
		Dimensions: types.Dimensions{Cols: 80, Rows: 24},
	})

	var spawnErr *terrors.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Spawn() error = %v, want SpawnError", err)
	}
	if spawnErr.Reason != terrors.SpawnReasonBadWorkdir {
		t.Errorf("Reason = %q, want %q", spawnErr.Reason, terrors.SpawnReasonBadWorkdir)
	}
}

func TestSpawn_EmptyWorkingDir(t *testing.T) {
	t.Parallel()

	_, err := Spawn(&PTYConfig{Dimensions: types.Dimensions{Cols: 80, Rows: 24}})

	var spawnErr *terrors.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Spawn() error = %v, want SpawnError", err)
	}
}

func TestClassifySpawnError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want terrors.SpawnReason
	}{
		{
			name: "eagain is exhaustion",
			err:  fmt.Errorf("forkpty: %w", syscall.EAGAIN),
			want: terrors.SpawnReasonExhausted,
		},
		{
			name: "emfile is exhaustion",
			err:  fmt.Errorf("open: %w", syscall.EMFILE),
			want: terrors.SpawnReasonExhausted,
		},
		{
			name: "enfile is exhaustion",
			err:  fmt.Errorf("open: %w", syscall.ENFILE),
			want: terrors.SpawnReasonExhausted,
		},
		{
			name: "message match is exhaustion",
			err:  fmt.Errorf("fork/exec: resource temporarily unavailable"),
			want: terrors.SpawnReasonExhausted,
		},
		{
			name: "anything else is other",
			err:  fmt.Errorf("exec: no such file"),
			want: terrors.SpawnReasonOther,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spawnErr := classifySpawnError(tt.err)
			if spawnErr.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", spawnErr.Reason, tt.want)
			}
			if tt.want == terrors.SpawnReasonExhausted && spawnErr.Hint == "" {
				t.Error("exhaustion should carry an operator hint")
			}
		})
	}
}

func TestResolveShell(t *testing.T) {
	if got := resolveShell("/bin/fish"); got != "/bin/fish" {
		t.Errorf("resolveShell(/bin/fish) = %q, want /bin/fish", got)
	}
	if got := resolveShell(""); got == "" {
		t.Error("resolveShell(\"\") should fall back to a shell")
	}
}

func TestBuildEnvironment(t *testing.T) {
	env := buildEnvironment(map[string]string{"FOO": "bar"})

	var foundFoo, foundTerm bool
	for _, entry := range env {
		switch {
		case entry == "FOO=bar":
			foundFoo = true
		case len(entry) >= 5 && entry[:5] == "TERM=":
			foundTerm = true
		}
	}

	if !foundFoo {
		t.Error("custom env var missing")
	}
	if !foundTerm {
		t.Error("TERM must always be set")
	}
}
