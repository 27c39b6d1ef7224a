// Package localfs stores uploaded audio files under a single directory and
// resolves the references jobs carry back to readable files.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/phrazzld/clipscribe/internal/task"
	"github.com/spf13/afero"
)

// RefPrefix prefixes every reference returned by Save.
const RefPrefix = "audio/"

var (
	// ErrAudioNotFound is returned when a reference names no stored file.
	ErrAudioNotFound = errors.New("audio file not found")

	// ErrInvalidRef is returned for references that are empty or leave the audio directory.
	ErrInvalidRef = errors.New("invalid audio reference")

	// ErrUnsupportedType is returned by Save for files that are neither audio nor video.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// FileType classifies a media file by extension.
type FileType string

// File types returned by DetectFileType.
const (
	FileTypeAudio   FileType = "audio"
	FileTypeVideo   FileType = "video"
	FileTypeUnknown FileType = "unknown"
)

var (
	audioExts = map[string]bool{"mp3": true, "wav": true, "m4a": true, "aac": true, "flac": true, "ogg": true, "wma": true}
	videoExts = map[string]bool{"mp4": true, "mkv": true, "avi": true, "mov": true, "wmv": true, "flv": true, "webm": true}

	unsafeNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
)

// DetectFileType reports whether name looks like an audio or a video file.
func DetectFileType(name string) FileType {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch {
	case audioExts[ext]:
		return FileTypeAudio
	case videoExts[ext]:
		return FileTypeVideo
	default:
		return FileTypeUnknown
	}
}

// AudioStorage implements task.LocalAudioStorage on an afero filesystem
// rooted at dir.
type AudioStorage struct {
	fs     afero.Fs
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

var _ task.LocalAudioStorage = (*AudioStorage)(nil)

// NewAudioStorage creates an AudioStorage that keeps files in dir on fsys.
// A nil fsys uses the OS filesystem.
func NewAudioStorage(fsys afero.Fs, dir string, logger *slog.Logger) *AudioStorage {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioStorage{
		fs:     fsys,
		dir:    filepath.Clean(dir),
		now:    time.Now,
		logger: logger.With("component", "audio_storage"),
	}
}

// Save copies r into the audio directory under a unique name derived from
// name and returns the reference to store in a job's local data.
func (s *AudioStorage) Save(name string, r io.Reader) (string, error) {
	if DetectFileType(name) == FileTypeUnknown {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := unsafeNameChars.ReplaceAllString(strings.TrimSuffix(base, ext), "_")
	fileName := fmt.Sprintf("%d_%s%s", s.now().UnixMilli(), stem, ext)

	f, err := s.fs.Create(filepath.Join(s.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	written, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = s.fs.Remove(filepath.Join(s.dir, fileName))
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	s.logger.Info("audio file saved", "file", fileName, "bytes", written)
	return RefPrefix + fileName, nil
}

// ResolveLocalAudioPath implements task.LocalAudioStorage. It accepts a
// reference with or without the RefPrefix and rejects references that
// escape the audio directory.
func (s *AudioStorage) ResolveLocalAudioPath(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", ErrInvalidRef
	}

	clean := path.Clean(filepath.ToSlash(ref))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	clean = strings.TrimPrefix(clean, RefPrefix)
	if clean == "." || clean == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}

	full := filepath.Join(s.dir, filepath.FromSlash(clean))
	info, err := s.fs.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrAudioNotFound, ref)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrAudioNotFound, ref)
	}
	return full, nil
}

// Open implements task.LocalAudioStorage.
func (s *AudioStorage) Open(p string) (io.ReadCloser, error) {
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAudioNotFound, p)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the file behind ref. Missing files are ignored.
func (s *AudioStorage) Delete(ref string) error {
	full, err := s.ResolveLocalAudioPath(ref)
	if errors.Is(err, ErrAudioNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.fs.Remove(full)
}
