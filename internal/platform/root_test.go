package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfig(t *testing.T) {
	// base/
	//   project/ (cone.yaml)
	//     subdir/
	//       nested/
	//   empty/
	//     cone.yaml/ (directory, not a config)

	baseDir := t.TempDir()
	projectDir := filepath.Join(baseDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(emptyDir, ConfigFile), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ConfigFile), []byte("{}\n"), 0644))

	want := filepath.Join(projectDir, ConfigFile)

	tests := []struct {
		name      string
		startPath string
		want      string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: projectDir, want: want},
		{name: "Start in Subdir", startPath: subDir, want: want},
		{name: "Start Nested Deeply", startPath: nestedDir, want: want},
		{name: "Directory Named Like Config", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConfig(tt.startPath)
			if tt.wantErr {
				// A cone.yaml further up the real filesystem would be found too.
				if err == nil {
					assert.NotEqual(t, filepath.Join(emptyDir, ConfigFile), got)
					return
				}
				assert.ErrorIs(t, err, ErrConfigNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want), filepath.Clean(got))
		})
	}
}
