package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// videoTypes covers the containers generation backends emit. Anything
// else falls back to the mime package.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// AssetServer serves source assets out of a single local directory.
// Asset names are relative paths; anything escaping the directory is
// rejected before touching the filesystem.
type AssetServer struct {
	assetsDir string
	logger    *slog.Logger
}

func NewAssetServer(assetsDir string, logger *slog.Logger) *AssetServer {
	return &AssetServer{assetsDir: assetsDir, logger: logger}
}

// Resolve maps an asset name to a path inside the assets directory.
func (s *AssetServer) Resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "\x00") {
		return "", fmt.Errorf("invalid asset name")
	}
	cleaned := filepath.Clean("/" + filepath.FromSlash(name))
	path := filepath.Join(s.assetsDir, cleaned)
	rel, err := filepath.Rel(s.assetsDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("asset name escapes assets directory")
	}
	return path, nil
}

// ServeAsset answers GET and HEAD for one asset, honoring single byte
// ranges so video elements can seek.
func (s *AssetServer) ServeAsset(w http.ResponseWriter, r *http.Request, name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		http.Error(w, "invalid asset name", http.StatusBadRequest)
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "asset not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open asset: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat asset: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "asset not found", http.StatusNotFound)
		return nil
	}

	size := stat.Size()
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentTypeFor(path))

	rng, hasRange, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err != nil {
		// A malformed Range header degrades to a full response.
		hasRange = false
	}

	if !hasRange {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.Copy(w, file)
		return err
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", rng.ContentLength()))
	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek asset: %w", err)
	}
	_, err = io.CopyN(w, file, rng.ContentLength())
	return err
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := videoTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
