package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// videoExtensions are the file extensions ListVideos reports.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// Video describes a generated video in the output directory.
type Video struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Local manages the output directory on local disk. It does not publish
// anywhere; Publish returns ErrS3NotConfigured.
type Local struct {
	dir string
}

// NewLocal creates a Local rooted at dir, creating the directory if it
// doesn't exist.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Local{dir: dir}, nil
}

// Dir returns the output directory path.
func (s *Local) Dir() string {
	return s.dir
}

// Path returns the path of name inside the output directory.
func (s *Local) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// ListVideos returns the video files in the output directory, newest first.
// Subdirectories and in-progress downloads are skipped.
func (s *Local) ListVideos(ctx context.Context) ([]Video, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	videos := make([]Video, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !videoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		videos = append(videos, Video{
			Name:    e.Name(),
			Path:    filepath.Join(s.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].ModTime.After(videos[j].ModTime)
	})
	return videos, nil
}

// Publish is not supported by Local and returns ErrS3NotConfigured.
func (s *Local) Publish(_ context.Context, _, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

// Compile-time check that Local implements Publisher.
var _ Publisher = (*Local)(nil)
