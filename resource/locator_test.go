package resource

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFS = fstest.MapFS{
	"assets/hello.txt":       {Data: []byte("hello, world")},
	"assets/empty.txt":       {Data: []byte{}},
	"assets/sprites/red.bin": {Data: []byte{0xff, 0x00, 0x00, 0xff}},
}

func TestLocatorPath(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	assert.Equal(t, filepath.Join("assets", "sprites", "red.bin"), l.Path("sprites/red.bin"))
	assert.Equal(t, l.Path("sprites/red.bin"), l.Path("sprites/red.bin"))
	assert.Equal(t, []string{"*"}, l.ResourceList())
}

func TestLocatorGetStatic(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	d, err := l.Get("hello.txt", false)
	require.NoError(t, err)

	s, ok := d.(*Static)
	require.True(t, ok)
	assert.Equal(t, l.Path("hello.txt"), s.Path())
	assert.Equal(t, []byte("hello, world"), s.Bytes())
	assert.Equal(t, int64(len("hello, world")), s.Size())

	b, err := ioutil.ReadAll(s.Reader())
	require.NoError(t, err)
	assert.Equal(t, s.Bytes(), b)
}

func TestLocatorGetEmpty(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	d, err := l.Get("empty.txt", false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), d.(*Static).Size())
}

func TestLocatorGetMissing(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	d, err := l.Get("missing.png", false)
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, errors.NotFound))

	d, err = l.Get("missing.png", true)
	require.NoError(t, err)
	require.NotNil(t, d)

	_, err = d.(*Stream).Open()
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestLocatorGetDirectory(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	_, err := l.Get("sprites", false)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestLocatorStreamDoesNotOpen(t *testing.T) {
	var calls int
	l := NewLocator("assets", OpenerFunc(func(path string) (Reader, error) {
		calls++
		return FS{testFS}.Open(path)
	}))

	d, err := l.Get("hello.txt", true)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	r, err := d.(*Stream).Open()
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 1, calls)
}

func TestStreamIndependentReaders(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	d, err := l.Get("hello.txt", true)
	require.NoError(t, err)
	s := d.(*Stream)

	r1, err := s.Open()
	require.NoError(t, err)
	defer r1.Close()

	r2, err := s.Open()
	require.NoError(t, err)
	defer r2.Close()

	var b [5]byte
	_, err = io.ReadFull(r1, b[:])
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b[:]))

	all, err := ioutil.ReadAll(r2)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(all))

	rest, err := ioutil.ReadAll(r1)
	require.NoError(t, err)
	assert.Equal(t, ", world", string(rest))
}

func TestStreamMatchesStatic(t *testing.T) {
	l := NewLocator("assets", FS{testFS})

	for _, name := range []string{"hello.txt", "empty.txt", "sprites/red.bin", "missing.png"} {
		t.Run(name, func(t *testing.T) {
			sd, serr := l.Get(name, false)

			d, err := l.Get(name, true)
			require.NoError(t, err)
			r, oerr := d.(*Stream).Open()

			if serr != nil {
				assert.Error(t, oerr)
				return
			}
			require.NoError(t, oerr)
			defer r.Close()

			b, err := ioutil.ReadAll(r)
			require.NoError(t, err)

			assert.Equal(t, sd.Path(), d.Path())
			assert.Equal(t, sd.(*Static).Size(), r.Size())
			assert.True(t, bytes.Equal(sd.(*Static).Bytes(), b))
		})
	}
}

type shortReader struct {
	io.Reader
	size int64
}

func (r *shortReader) Size() int64  { return r.size }
func (r *shortReader) Close() error { return nil }

func TestLocatorShortRead(t *testing.T) {
	l := NewLocator("", OpenerFunc(func(string) (Reader, error) {
		return &shortReader{Reader: bytes.NewReader([]byte{1, 2, 3}), size: 8}, nil
	}))

	d, err := l.Get("short", false)
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestFileSystem(t *testing.T) {
	dir, err := ioutil.TempDir("", "resource")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "data.bin"), []byte{1, 2, 3, 4}, 0644))

	l := NewLocator(dir, nil)

	d, err := l.Get("data.bin", false)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, d.(*Static).Bytes())
	assert.Equal(t, filepath.Join(dir, "data.bin"), d.Path())

	_, err = l.Get("nope.bin", false)
	assert.True(t, errors.Is(err, errors.NotFound))
}
