package ffi

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	downloadTimeout   = 10 * time.Minute
	downloadLockDelay = 200 * time.Millisecond
	downloadLockTries = 50
)

func isDownloadDisabled() bool {
	value := strings.TrimSpace(os.Getenv(envDisableDownload))
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	return value != "0" && value != "false"
}

// FetchBundle downloads and unpacks the release bundle for the running
// platform into the cache, returning the path of the engine library.
// An already cached library is returned without network access.
func FetchBundle(opts LoaderOptions) (string, error) {
	return downloadBundle(withDefaults(opts))
}

func downloadBundle(opts LoaderOptions) (string, error) {
	osKey, archKey, err := bundlePlatform()
	if err != nil {
		return "", err
	}

	url := bundleURL(opts, osKey, archKey)
	if opts.BundleSHA256 != "" && !isValidSHA256(opts.BundleSHA256) {
		return "", fmt.Errorf("invalid bundle sha256 %q", opts.BundleSHA256)
	}

	cacheRoot, err := bundleCacheRoot(opts)
	if err != nil {
		return "", err
	}

	libName := getLibraryName()
	destDir := filepath.Join(cacheRoot, "bundle", opts.BundleVersion, osKey+"-"+archKey)
	libPath := filepath.Join(destDir, libName)

	if _, err := os.Stat(libPath); err == nil {
		return libPath, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create bundle cache dir: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "downloadBundle",
		"url":      url,
		"dest":     destDir,
	}).Info("Downloading ntgcalls bundle")

	if err := withDownloadLock(destDir, opts.DownloadTimeout, func() error {
		if _, err := os.Stat(libPath); err == nil {
			return nil
		}
		return downloadAndInstallBundle(url, opts.BundleSHA256, opts.DownloadTimeout, destDir, libName)
	}); err != nil {
		return "", err
	}

	if _, err := os.Stat(libPath); err != nil {
		return "", fmt.Errorf("ntgcalls library not found after download: %s", libPath)
	}

	return libPath, nil
}

// bundleURL returns the archive location. An explicit URL wins over the
// prefix-derived release asset name.
func bundleURL(opts LoaderOptions, osKey, archKey string) string {
	if opts.BundleURL != "" {
		return opts.BundleURL
	}
	prefix := strings.TrimRight(opts.BundleURLPrefix, "/")
	return fmt.Sprintf("%s/ntgcalls.%s-%s-shared_libs.zip", prefix, osKey, archKey)
}

func bundlePlatform() (string, string, error) {
	return bundlePlatformFor(runtime.GOOS, runtime.GOARCH)
}

// bundlePlatformFor maps GOOS/GOARCH to the os and arch names used by the
// release assets. Only linux and windows bundles are published.
func bundlePlatformFor(goos, goarch string) (string, string, error) {
	switch goos {
	case "linux", "windows":
	default:
		return "", "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	switch goarch {
	case "amd64":
		return goos, "x86_64", nil
	case "arm64":
		return goos, "arm64", nil
	}
	return "", "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
}

func bundleCacheRoot(opts LoaderOptions) (string, error) {
	if dir := strings.TrimSpace(opts.CacheDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".libntgcalls"), nil
}

// withDownloadLock runs fn while holding the cache directory's download
// lock. A lock older than staleAfter is left over from a crashed process
// and is reclaimed.
func withDownloadLock(dir string, staleAfter time.Duration, fn func() error) error {
	lockPath := filepath.Join(dir, ".download.lock")

	for i := 0; i < downloadLockTries; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = lockFile.Close()
			defer os.Remove(lockPath)
			return fn()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create download lock: %w", err)
		}
		if staleLock(lockPath, staleAfter) {
			logrus.WithFields(logrus.Fields{
				"function": "withDownloadLock",
				"lock":     lockPath,
			}).Warn("Removing stale bundle download lock")
			if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove stale download lock: %w", err)
			}
			continue
		}
		time.Sleep(downloadLockDelay)
	}

	return fmt.Errorf("timeout waiting for bundle download lock in %s", dir)
}

func staleLock(path string, staleAfter time.Duration) bool {
	if staleAfter <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleAfter
}

func downloadAndInstallBundle(url, expectedSHA256 string, timeout time.Duration, destDir, libName string) error {
	tmpFile, err := os.CreateTemp(destDir, "bundle-download-*.zip")
	if err != nil {
		return fmt.Errorf("create download temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("download bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_ = tmpFile.Close()
		return fmt.Errorf("download bundle: unexpected status %s", resp.Status)
	}

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("download bundle: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("finalize bundle archive: %w", err)
	}

	if expectedSHA256 != "" {
		actualSHA := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actualSHA, expectedSHA256) {
			return fmt.Errorf("bundle sha256 mismatch: expected %s, got %s", expectedSHA256, actualSHA)
		}
	}

	extractDir, err := os.MkdirTemp(destDir, "bundle-extract-")
	if err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}
	defer os.RemoveAll(extractDir)

	if err := extractZip(tmpPath, extractDir); err != nil {
		return fmt.Errorf("extract bundle: %w", err)
	}

	foundLib, err := findFileByName(extractDir, libName)
	if err != nil {
		return err
	}

	finalPath := filepath.Join(destDir, libName)
	if err := moveFile(foundLib, finalPath); err != nil {
		return fmt.Errorf("install bundle: %w", err)
	}

	if runtime.GOOS != "windows" {
		_ = os.Chmod(finalPath, 0o755)
	}

	return nil
}

func extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	for _, file := range reader.File {
		cleanName := filepath.Clean(filepath.FromSlash(file.Name))
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("invalid archive path: %s", file.Name)
		}

		targetPath := filepath.Join(destDir, cleanName)

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return err
			}
			continue
		}
		if !file.Mode().IsRegular() {
			return fmt.Errorf("unsupported archive entry: %s", file.Name)
		}
		if err := extractZipFile(file, targetPath); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(file *zip.File, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}
	in, err := file.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func findFileByName(rootDir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(rootDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if entry.Name() == name {
			found = path
			return io.EOF
		}
		return nil
	})
	if errors.Is(err, io.EOF) && found != "" {
		return found, nil
	}
	if err != nil {
		return "", err
	}
	return "", fmt.Errorf("file %s not found in bundle", name)
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func isValidSHA256(value string) bool {
	if len(value) != 64 {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}
