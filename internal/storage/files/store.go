// Package files stores uploaded files (images, résumés) on local disk under
// generated names.
package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/metrics"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge        = errors.New("file exceeds the size limit")
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrInvalidName     = errors.New("invalid file name")
	ErrNotFound        = errors.New("file not found")
)

// ImageExtensions are accepted for admin image uploads. SVG is excluded
// because it can carry script.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// sniffed lists the detected media types accepted for each extension.
var sniffed = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".webp": {"image/webp"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

// contentTypes maps stored extensions to the Content-Type they are served with.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var storedName = regexp.MustCompile(`^[0-9a-z]{26}\.[a-z0-9]{2,5}$`)

const sniffLen = 3072

type Store struct {
	dir string
}

// New returns a store rooted at dir, creating it when missing.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes body under a new ULID-based name keeping the original
// extension. The extension must be in allowed and agree with the sniffed
// content.
func (s *Store) Save(ctx context.Context, originalName string, body io.Reader, maxBytes int64, allowed []string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if !slices.Contains(allowed, ext) && !(ext == ".jpg" && slices.Contains(allowed, ".jpeg")) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(originalName))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	if !matches(mimetype.Detect(head), sniffed[ext]) {
		return "", fmt.Errorf("%w: content does not match %s", ErrUnsupportedType, ext)
	}

	id, err := ids.NewULID()
	if err != nil {
		return "", fmt.Errorf("generate file name: %w", err)
	}
	name := strings.ToLower(id) + ext

	tmp, err := os.CreateTemp(s.dir, "upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	written, err := io.Copy(tmp, io.LimitReader(io.MultiReader(bytes.NewReader(head), body), maxBytes+1))
	if err != nil {
		cleanup()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written > maxBytes {
		cleanup()
		return "", ErrTooLarge
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("store upload: %w", err)
	}
	metrics.UploadedBytes.Add(float64(written))
	return name, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if !storedName.MatchString(name) {
		return ErrInvalidName
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// Open returns a stored file and the content type it should be served with.
func (s *Store) Open(name string) (*os.File, string, error) {
	if !storedName.MatchString(name) {
		return nil, "", ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	ctype := contentTypes[filepath.Ext(name)]
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	return f, ctype, nil
}

// Info describes a stored upload for the admin console.
type Info struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ModTime     time.Time `json:"modified_at"`
}

// List returns the stored public uploads, newest first. Résumés share the
// directory but are never listed.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Public(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:        e.Name(),
			URL:         URL(e.Name()),
			Size:        fi.Size(),
			ContentType: contentTypes[filepath.Ext(e.Name())],
			ModTime:     fi.ModTime().UTC(),
		})
	}
	// ULID names sort by creation time.
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(b.Name, a.Name) })
	return out, nil
}

// Public reports whether a stored file may be served without authentication.
func Public(name string) bool {
	return storedName.MatchString(name) && slices.Contains(ImageExtensions, filepath.Ext(name))
}

// URL is the public path of a stored file.
func URL(name string) string {
	return "/uploads/" + name
}

func matches(detected *mimetype.MIME, accepted []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if slices.ContainsFunc(accepted, m.Is) {
			return true
		}
	}
	return false
}
