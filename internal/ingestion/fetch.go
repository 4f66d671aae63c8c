package ingestion

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"microlesson/internal/config"
	"microlesson/internal/services"
)

// Fetcher downloads a remote source into dir and returns the local path.
type Fetcher func(ctx context.Context, rawURL, dir string, maxBytes int64) (string, error)

// validateRemoteURL rejects malformed, non-HTTP, and private-network URLs
// before any network traffic happens.
func validateRemoteURL(rawURL string) error {
	if rawURL == "" {
		return services.Wrap(
			services.ErrValidation, "ingestion", "validate url",
			"Source URL is required", nil)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "ingestion", "validate url",
			"Source URL is malformed", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return services.Wrap(
			services.ErrValidation, "ingestion", "validate url",
			fmt.Sprintf("Unsupported URL scheme %q", parsed.Scheme), nil)
	}
	host := parsed.Hostname()
	if host == "" {
		return services.Wrap(
			services.ErrValidation, "ingestion", "validate url",
			"Source URL has no host", nil)
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "ingestion", "validate url",
			fmt.Sprintf("Host %q does not resolve", host), err)
	}
	for _, addr := range addrs {
		if isRestrictedIP(addr) {
			return services.Wrap(
				services.ErrValidation, "ingestion", "validate url",
				fmt.Sprintf("Host %q resolves to a restricted address", host), nil)
		}
	}
	return nil
}

func isRestrictedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

func newHTTPFetcher(cfg *config.Config) Fetcher {
	timeout := 5 * time.Minute
	if cfg.Ingestion.FetchTimeoutSec > 0 {
		timeout = time.Duration(cfg.Ingestion.FetchTimeoutSec) * time.Second
	}
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, rawURL, dir string, maxBytes int64) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", services.Wrap(
				services.ErrValidation, "ingestion", "fetch remote",
				"Source URL could not be requested", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", services.Wrap(
				services.ErrValidation, "ingestion", "fetch remote",
				"Source URL is unreachable", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", services.Wrap(
				services.ErrValidation, "ingestion", "fetch remote",
				fmt.Sprintf("Source URL returned HTTP %d", resp.StatusCode), nil)
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", services.Wrap(
				services.ErrTransient, "ingestion", "fetch remote",
				"Failed to prepare staging directory", err)
		}

		dest := filepath.Join(dir, downloadFilename(rawURL))
		file, err := os.Create(dest)
		if err != nil {
			return "", services.Wrap(
				services.ErrTransient, "ingestion", "fetch remote",
				"Failed to create staging file", err)
		}

		reader := io.Reader(resp.Body)
		if maxBytes > 0 {
			reader = io.LimitReader(resp.Body, maxBytes+1)
		}
		written, err := io.Copy(file, reader)
		closeErr := file.Close()
		if err != nil {
			removeQuietly(dest)
			return "", services.Wrap(
				services.ErrTransient, "ingestion", "fetch remote",
				"Download interrupted", err)
		}
		if closeErr != nil {
			removeQuietly(dest)
			return "", services.Wrap(
				services.ErrTransient, "ingestion", "fetch remote",
				"Failed to finish staging file", closeErr)
		}
		if maxBytes > 0 && written > maxBytes {
			removeQuietly(dest)
			return "", services.Wrap(
				services.ErrValidation, "ingestion", "fetch remote",
				"Remote file exceeds the configured size limit", nil)
		}
		return dest, nil
	}
}

// downloadFilename keeps the remote extension but namespaces the file so
// concurrent downloads never collide.
func downloadFilename(rawURL string) string {
	ext := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		ext = path.Ext(parsed.Path)
	}
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		ext = ".mp4"
	}
	return "remote-" + uuid.NewString() + ext
}
