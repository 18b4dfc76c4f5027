package bilevel

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 50, G: 50, B: 50, A: 255})

	path := filepath.Join(dir, "sample.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	return path
}

func TestExecute_WritesDestinations(t *testing.T) {
	dir := t.TempDir()
	op := &Ops{
		Src:      writeSample(t, dir),
		Dst:      filepath.Join(dir, "out.png"),
		Gray:     filepath.Join(dir, "gray.tif"),
		PipeName: "-",
	}

	mem := &MemorySink{}
	p := NewProcessor()
	p.Sink = mem

	res, err := p.Execute(op)
	require.NoError(t, err)
	assert.Equal(t, Stats{Width: 2, Height: 2, Black: 2, White: 2}, res.Stats)
	assert.Same(t, res.Binary, mem.Binary(), "the processor sink should receive the images too")

	bin, err := OpenImage(op.Dst)
	require.NoError(t, err)
	for i, want := range []uint8{White, Black, White, Black} {
		x, y := i%2, i/2
		got := color.GrayModel.Convert(bin.At(x, y)).(color.Gray)
		assert.Equal(t, want, got.Y, "pixel (%d,%d)", x, y)
	}

	gray, err := OpenImage(op.Gray)
	require.NoError(t, err)
	assert.Equal(t, res.Gray.Pix, gray.(*image.Gray).Pix)
}

func TestExecute_SourceErrors(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor()

	_, err := p.Execute(&Ops{Src: dir, Dst: filepath.Join(dir, "out.png")})
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, ErrDirectorySource)
	assert.Equal(t, dir, de.Source)

	_, err = p.Execute(&Ops{Src: filepath.Join(dir, "missing.jpg"), Dst: filepath.Join(dir, "out.png")})
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = p.Execute(&Ops{Dst: filepath.Join(dir, "out.png")})
	assert.ErrorAs(t, err, &de)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = p.Execute(&Ops{Src: junk, Dst: filepath.Join(dir, "out.png")})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, junk, de.Source)
	assert.NoFileExists(t, filepath.Join(dir, "out.png"))
}

func TestExecute_InvalidDestinations(t *testing.T) {
	dir := t.TempDir()
	src := writeSample(t, dir)
	p := NewProcessor()

	_, err := p.Execute(&Ops{Src: src, Dst: filepath.Join(dir, "out.xyz")})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.NoFileExists(t, filepath.Join(dir, "out.xyz"))

	_, err = p.Execute(&Ops{Src: src, Dst: "-", Gray: "-", PipeName: "-"})
	assert.ErrorContains(t, err, "stdout")
}

func TestExecute_URLSource(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix = []uint8{0, 129, 255}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	dst := filepath.Join(t.TempDir(), "out.bmp")
	res, err := NewProcessor().Execute(&Ops{Src: srv.URL + "/sample.png", Dst: dst})
	require.NoError(t, err)
	assert.FileExists(t, dst)
	assert.Equal(t, 3, res.Stats.Width)
	assert.Equal(t, Black, res.Binary.Pix[0])
	assert.Equal(t, White, res.Binary.Pix[2])
}

func TestExecute_FailureRemovesWrittenOutputs(t *testing.T) {
	dir := t.TempDir()
	op := &Ops{
		Src:  writeSample(t, dir),
		Gray: filepath.Join(dir, "gray.png"),
		Dst:  filepath.Join(dir, "missing", "out.png"),
	}

	_, err := NewProcessor().Execute(op)
	assert.ErrorContains(t, err, "binary")
	assert.NoFileExists(t, op.Gray, "the grayscale output of a failed run should be removed")
	assert.NoFileExists(t, op.Dst)
}

func TestExecute_SinkFailureRemovesWrittenOutputs(t *testing.T) {
	dir := t.TempDir()
	op := &Ops{
		Src:  writeSample(t, dir),
		Gray: filepath.Join(dir, "gray.png"),
		Dst:  filepath.Join(dir, "out.png"),
	}

	p := NewProcessor()
	p.Sink = SinkFunc(func(stage Stage, img *image.Gray) error {
		if stage == BinaryStage {
			return errors.New("viewer closed")
		}
		return nil
	})

	_, err := p.Execute(op)
	assert.ErrorContains(t, err, "viewer closed")
	assert.NoFileExists(t, op.Gray)
	assert.NoFileExists(t, op.Dst)
}
