package main

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knnviz/internal/config"
	"knnviz/internal/geom"
)

const irisLike = `sepal_length,sepal_width,petal_length,species
5.1,3.5,1.4,setosa
4.9,3.0,1.4,setosa
4.7,3.2,1.3,setosa
7.0,3.2,4.7,versicolor
6.4,3.2,4.5,versicolor
6.9,3.1,4.9,versicolor
6.3,3.3,6.0,virginica
5.8,2.7,5.1,virginica
7.1,3.0,5.9,virginica
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iris.csv")
	require.NoError(t, os.WriteFile(path, []byte(irisLike), 0644))
	return path
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// execute runs the CLI with fresh flag state and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithStderr(t, io.Discard, args...)
}

func executeWithStderr(t *testing.T, stderr io.Writer, args ...string) (string, error) {
	t.Helper()
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		resetFlags(c.Flags())
		resetFlags(c.PersistentFlags())
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseAt(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    geom.Vec
		wantErr bool
	}{
		{name: "plain", in: "5.1,3.5", want: geom.Vec{5.1, 3.5}},
		{name: "spaces", in: " -1 , 2e3 ", want: geom.Vec{-1, 2000}},
		{name: "one value", in: "5.1", wantErr: true},
		{name: "three values", in: "1,2,3", wantErr: true},
		{name: "not a number", in: "a,2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAt(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCommand(t *testing.T) {
	path := writeCSV(t)
	out, err := execute(t, "classify", path, "--at", "5.0,3.4")
	require.NoError(t, err)
	assert.Contains(t, out, "prediction: setosa")
	assert.Contains(t, out, "sepal_length")
	assert.Contains(t, out, "distance")

	out, err = execute(t, "classify", path, "--x", "petal_length", "--y", "sepal_width", "--at", "5.5,3.0", "-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "prediction: virginica")
	assert.Contains(t, out, "k=1")
}

func TestSubcommandsLogToStderr(t *testing.T) {
	path := writeCSV(t)
	var stderr bytes.Buffer
	_, err := executeWithStderr(t, &stderr, "classify", path, "--at", "5.0,3.4", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "classified")
	assert.Contains(t, stderr.String(), "prediction=setosa")
}

func TestClassifyCommand_Errors(t *testing.T) {
	path := writeCSV(t)

	_, err := execute(t, "classify", path, "--at", "nope")
	assert.Error(t, err)

	_, err = execute(t, "classify", path, "--x", "petal_width", "--at", "1,2")
	assert.ErrorContains(t, err, "unknown feature")

	_, err = execute(t, "classify", filepath.Join(t.TempDir(), "missing.csv"), "--at", "1,2")
	assert.Error(t, err)

	_, err = execute(t, "classify", path, "--at", "1,2", "-k", "0")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRenderCommand(t *testing.T) {
	path := writeCSV(t)
	out := filepath.Join(t.TempDir(), "surface.png")
	stdout, err := execute(t, "render", path, "-o", out, "--width", "120", "--height", "90", "--stride", "6")
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.DecodeConfig(f)
	assert.NoError(t, err)
}

func TestRenderCommand_ShortPaletteCyclesColors(t *testing.T) {
	path := writeCSV(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("palette: [\"#ff0000\"]\n"), 0644))
	out := filepath.Join(t.TempDir(), "surface.png")

	_, err := execute(t, "render", path, "--config", cfgPath, "-o", out, "--width", "60", "--height", "40")
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config", "-k", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "k: 5")
	assert.Contains(t, out, "debounce: 250ms")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	_, err = execute(t, "config", "--stride", "7", "--write", path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Stride)

	out, err = execute(t, "config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "stride: 7")
}
