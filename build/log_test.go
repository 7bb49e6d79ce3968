package build

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestParseAndSetDebugLevels checks the global and per subsystem syntax of
// the debug level string.
func TestParseAndSetDebugLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   string
		want    map[string]btclog.Level
		wantErr bool
	}{
		{
			name:  "global level",
			level: "debug",
			want: map[string]btclog.Level{
				"SEED": btclog.LevelDebug,
				"KCHN": btclog.LevelDebug,
			},
		},
		{
			name:  "global and subsystem",
			level: "warn,KCHN=trace",
			want: map[string]btclog.Level{
				"SEED": btclog.LevelWarn,
				"KCHN": btclog.LevelTrace,
			},
		},
		{
			name:  "subsystem only",
			level: "SEED=error",
			want: map[string]btclog.Level{
				"SEED": btclog.LevelError,
				"KCHN": btclog.LevelInfo,
			},
		},
		{
			name:    "invalid global",
			level:   "loud",
			wantErr: true,
		},
		{
			name:    "unknown subsystem",
			level:   "info,NOPE=debug",
			wantErr: true,
		},
		{
			name:    "bad pair",
			level:   "info,SEED=debug=trace",
			wantErr: true,
		},
		{
			name:    "invalid subsystem level",
			level:   "SEED=verbose",
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			mgr := NewSubLoggerManager(&bytes.Buffer{})
			mgr.GenSubLogger("SEED")
			mgr.GenSubLogger("KCHN")

			err := ParseAndSetDebugLevels(test.level, mgr)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			for id, level := range test.want {
				require.Equal(
					t, level, mgr.SubLoggers()[id].Level(),
					id,
				)
			}
		})
	}
}

// TestSubLoggerManager makes sure loggers are registered once and write to
// the shared backend.
func TestSubLoggerManager(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mgr := NewSubLoggerManager(&LogWriter{Console: &buf})

	logger := NewSubLogger("UFVK", mgr.GenSubLogger)
	require.Same(t, logger, mgr.GenSubLogger("UFVK"))
	require.Equal(t, []string{"UFVK"}, mgr.SupportedSubsystems())

	logger.SetLevel(btclog.LevelInfo)
	logger.Infof("hello %d", 42)
	require.Contains(t, buf.String(), "UFVK: hello 42")

	require.Equal(t, btclog.Disabled, NewSubLogger("NONE", nil))
}

// TestRotatingLogWriter checks that the rotator can be started and shut down
// cleanly.
func TestRotatingLogWriter(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "logs", "juno-keys.log")

	r := NewRotatingLogWriter()
	require.NoError(t, r.InitLogRotator(
		logFile, DefaultMaxLogFileSize, DefaultMaxLogFiles,
	))

	_, err := r.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	// Closing twice is a no-op.
	require.NoError(t, r.Close())
}
