package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DownloadFilename is "<Title>_scene_<n>.jpg" with every non-alphanumeric
// title character replaced by an underscore.
func DownloadFilename(title string, n int) string {
	return fmt.Sprintf("%s_scene_%d.jpg", unsafeFilename.ReplaceAllString(title, "_"), n)
}

// DownloadAll saves every image of the current story into dir, one request
// at a time with a pause between them. It returns the written paths.
func (s *Studio) DownloadAll(ctx context.Context, dir string) ([]string, error) {
	cur := s.snapshot()
	if cur == nil {
		return nil, errors.New("no story is open")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(s.downloadInterval), 1)
	paths := make([]string, 0, len(cur.Images))
	for i, img := range cur.Images {
		if err := limiter.Wait(ctx); err != nil {
			return paths, err
		}

		path := filepath.Join(dir, DownloadFilename(cur.Title, i+1))
		if err := s.download(ctx, img.ImageURL, path); err != nil {
			s.log.Error("error downloading image", zap.String("url", img.ImageURL), zap.Error(err))
			return paths, fmt.Errorf("scene %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}

	s.log.Info("images downloaded", zap.String("story_id", cur.ID), zap.Int("count", len(paths)))
	return paths, nil
}

func (s *Studio) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
