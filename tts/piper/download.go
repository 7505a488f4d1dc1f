package piper

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Downloader fetches voice models from a piper-voices repository. The
// upstream layout is <family>/<code>/<name>/<quality>/<id>.onnx with a
// matching .onnx.json sidecar, e.g. en/en_GB/cori/high/en_GB-cori-high.onnx.
type Downloader struct {
	BaseURL string
	Client  *http.Client
}

// NewDownloader creates a downloader against the given repository root.
func NewDownloader(baseURL string) *Downloader {
	return &Downloader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// Download fetches the model and its sidecar config for a voice id like
// "en_GB-cori-high" into destDir. Files land under their final names only
// after a complete fetch; partial downloads are discarded.
func (d *Downloader) Download(voiceID, destDir string) error {
	dir, err := voicePath(voiceID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	for _, suffix := range []string{".onnx", ".onnx.json"} {
		name := voiceID + suffix
		url := d.BaseURL + "/" + dir + "/" + name
		if err := d.fetch(url, filepath.Join(destDir, name)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// voicePath derives the repository subdirectory for a voice id.
func voicePath(voiceID string) (string, error) {
	parts := strings.Split(voiceID, "-")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid voice id %q (want <lang>-<name>-<quality>)", voiceID)
	}
	code, name, quality := parts[0], parts[1], parts[2]

	family, _, _ := strings.Cut(code, "_")
	if family == "" || name == "" || quality == "" {
		return "", fmt.Errorf("invalid voice id %q", voiceID)
	}

	return family + "/" + code + "/" + name + "/" + quality, nil
}

func (d *Downloader) fetch(url, dest string) error {
	resp, err := d.Client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	tmp := dest + ".download"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return closeErr
	}
	if n == 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("empty payload")
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	log.Info("downloaded", "file", filepath.Base(dest), "size", humanize.Bytes(uint64(n)))
	return nil
}
