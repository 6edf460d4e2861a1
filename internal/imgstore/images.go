// Package imgstore persists captured eye images under the application
// documents directory and decodes stored stills back into grayscale
// matrices for the pipeline.
package imgstore

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg" // register JPEG decoding for captured stills

	"github.com/google/uuid"

	"github.com/veridio/iriscore/internal/fsutil"
	"github.com/veridio/iriscore/internal/iris"
)

// SubdirName is the directory under the documents root that holds captured
// eye images.
const SubdirName = "iris_images"

// Store reads and writes captured eye images through an injected
// filesystem.
type Store struct {
	fs  fsutil.FileSystem
	dir string
}

// New creates a store rooted at <docsDir>/iris_images, creating the
// directory if needed.
func New(fs fsutil.FileSystem, docsDir string) (*Store, error) {
	dir := filepath.Join(docsDir, SubdirName)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// Dir returns the image directory path.
func (s *Store) Dir() string { return s.dir }

// SavePNG writes a grayscale image as <uuid>.png and returns its path.
// The image is not consumed.
func (s *Store) SavePNG(img *iris.Image) (string, error) {
	gray := image.NewGray(image.Rect(0, 0, img.Cols, img.Rows))
	for y := 0; y < img.Rows; y++ {
		copy(gray.Pix[y*gray.Stride:y*gray.Stride+img.Cols], img.Pix[y*img.Cols:(y+1)*img.Cols])
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	path := filepath.Join(s.dir, uuid.NewString()+".png")
	if err := s.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

// Raw returns the encoded bytes of a stored still without decoding.
func (s *Store) Raw(path string) ([]byte, error) {
	return s.fs.ReadFile(path)
}

// Load decodes a stored still (PNG or JPEG, color or grayscale) into a
// grayscale matrix the caller owns.
func (s *Store) Load(path string) (*iris.Image, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return DecodeGray(data)
}

// List returns the stored image paths, sorted.
func (s *Store) List() ([]string, error) {
	names, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, n := range names {
		if strings.HasSuffix(n, ".png") || strings.HasSuffix(n, ".jpg") || strings.HasSuffix(n, ".jpeg") {
			paths = append(paths, filepath.Join(s.dir, n))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Remove deletes a stored image.
func (s *Store) Remove(path string) error {
	return s.fs.Remove(path)
}

// DecodeGray decodes encoded image bytes to a grayscale matrix, converting
// color inputs with the Rec. 601 luma weights.
func DecodeGray(data []byte) (*iris.Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	out := iris.NewImage(b.Dy(), b.Dx())
	if g, ok := src.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Cols:(y+1)*out.Cols], g.Pix[y*g.Stride:y*g.Stride+out.Cols])
		}
		return out, nil
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(y-b.Min.Y, x-b.Min.X, color.GrayModel.Convert(src.At(x, y)).(color.Gray).Y)
		}
	}
	return out, nil
}
