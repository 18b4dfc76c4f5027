package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/esimov/bilevel"
)

func TestConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := configFrom(v)
	assert.Equal(t, bilevel.DefaultThreshold, cfg.Threshold)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.Preview)
	assert.Empty(t, cfg.Source)
}

func TestConfig_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("BILEVEL_THRESHOLD", "200")
	t.Setenv("BILEVEL_OUT", "result.png")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BILEVEL")
	v.AutomaticEnv()

	cfg := configFrom(v)
	assert.Equal(t, 200, cfg.Threshold)
	assert.Equal(t, "result.png", cfg.Output)
}

func TestConfig_ReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bilevel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 90\nworkers: 4\ngray: gray.png\n"), 0o644))

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg := configFrom(v)
	assert.Equal(t, 90, cfg.Threshold)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "gray.png", cfg.Gray)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := Config{Source: "in.jpg", Output: "out.png", Threshold: 100, Workers: 2}

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "threshold: 100")

	var got Config
	require.NoError(t, yaml.Unmarshal(out, &got))
	assert.Equal(t, cfg, got)
}

func TestRun_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.NRGBA{A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	cfg := Config{
		Source:    src,
		Output:    filepath.Join(dir, "out.png"),
		Gray:      filepath.Join(dir, "gray.bmp"),
		Threshold: bilevel.DefaultThreshold,
		Workers:   1,
	}
	require.NoError(t, run(cfg))

	out, err := bilevel.OpenImage(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 255}, color.GrayModel.Convert(out.At(0, 0)))
	assert.Equal(t, color.Gray{Y: 0}, color.GrayModel.Convert(out.At(1, 0)))

	_, err = os.Stat(cfg.Gray)
	assert.NoError(t, err)
}

func TestRun_MissingSource(t *testing.T) {
	cfg := Config{Source: filepath.Join(t.TempDir(), "missing.png"), Output: "out.png"}

	var de *bilevel.DecodeError
	assert.ErrorAs(t, run(cfg), &de)
}

// executeRoot runs the root command with args, starting from the flag defaults.
func executeRoot(t *testing.T, args ...string) error {
	t.Helper()

	reset := func() {
		rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset()
	t.Cleanup(reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

func TestRootCmd_RequiresSource(t *testing.T) {
	err := executeRoot(t, "--out", "out.png")
	assert.EqualError(t, err, "please provide a source image")
}

func TestRootCmd_RequiresAnOutput(t *testing.T) {
	err := executeRoot(t, "in.png")
	assert.ErrorContains(t, err, "nothing to do")
}

func TestRootCmd_PositionalSourceOverridesFlag(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o644))

	out := filepath.Join(dir, "out.png")
	require.NoError(t, executeRoot(t, "--in", filepath.Join(dir, "missing.png"), "--out", out, src))
	assert.FileExists(t, out)
}
