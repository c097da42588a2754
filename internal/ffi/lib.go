// Package ffi provides bindings to the NTgCalls engine library.
// It supports both purego (default) and CGO dlopen backends via build tags.
package ffi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrLibraryNotLoaded is returned when the engine library hasn't been loaded.
	ErrLibraryNotLoaded = errors.New("ntgcalls library not loaded")

	// ErrLibraryNotFound is returned when the engine library cannot be found.
	ErrLibraryNotFound = errors.New("ntgcalls library not found")

	// ErrSymbolNotFound is returned when a required entry point is missing.
	ErrSymbolNotFound = errors.New("ntgcalls symbol not found")

	// ErrUnsupportedPlatform is returned when no engine bundle exists for the platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform for ntgcalls bundle")
)

const (
	envLibPath           = "NTGCALLS_LIB_PATH"
	envBundleDir         = "NTGCALLS_BUNDLE_DIR"
	envBundleURL         = "NTGCALLS_BUNDLE_URL"
	envBundleURLPrefix   = "NTGCALLS_BUNDLE_URL_PREFIX"
	envBundleSHA256      = "NTGCALLS_BUNDLE_SHA256"
	envCacheDir          = "NTGCALLS_CACHE_DIR"
	envDisableDownload   = "NTGCALLS_DISABLE_DOWNLOAD"
	defaultBundleVersion = "v1.1.3"
	defaultURLPrefix     = "https://github.com/pytgcalls/ntgcalls/releases/download/" + defaultBundleVersion
)

// LoaderOptions controls where LoadLibrary looks for the engine.
// Empty fields fall back to the NTGCALLS_* environment variables and then
// to built-in defaults.
type LoaderOptions struct {
	LibPath         string
	BundleDir       string
	BundleURL       string
	BundleURLPrefix string
	BundleVersion   string
	BundleSHA256    string
	CacheDir        string
	DisableDownload bool
	DownloadTimeout time.Duration
}

var (
	libHandle uintptr
	libLoaded atomic.Bool // Use atomic for lock-free reads
	libMu     sync.Mutex  // Still used for load/unload and Install

	loaderMu   sync.RWMutex
	loaderOpts LoaderOptions
)

// SetLoaderOptions sets the options used by the next LoadLibrary call.
func SetLoaderOptions(opts LoaderOptions) {
	loaderMu.Lock()
	loaderOpts = opts
	loaderMu.Unlock()
}

func currentLoaderOptions() LoaderOptions {
	loaderMu.RLock()
	opts := loaderOpts
	loaderMu.RUnlock()
	return withDefaults(opts)
}

// withDefaults fills empty fields from the environment and built-in defaults.
func withDefaults(opts LoaderOptions) LoaderOptions {
	if opts.LibPath == "" {
		opts.LibPath = os.Getenv(envLibPath)
	}
	if opts.BundleDir == "" {
		opts.BundleDir = os.Getenv(envBundleDir)
	}
	if opts.BundleURL == "" {
		opts.BundleURL = os.Getenv(envBundleURL)
	}
	if opts.BundleURLPrefix == "" {
		opts.BundleURLPrefix = os.Getenv(envBundleURLPrefix)
	}
	if opts.BundleURLPrefix == "" {
		opts.BundleURLPrefix = defaultURLPrefix
	}
	if opts.BundleVersion == "" {
		opts.BundleVersion = defaultBundleVersion
	}
	if opts.BundleSHA256 == "" {
		opts.BundleSHA256 = os.Getenv(envBundleSHA256)
	}
	if opts.CacheDir == "" {
		opts.CacheDir = os.Getenv(envCacheDir)
	}
	if !opts.DisableDownload {
		opts.DisableDownload = isDownloadDisabled()
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = downloadTimeout
	}
	return opts
}

// LoadLibrary loads the ntgcalls shared library.
// It searches in the following locations:
// 1. Explicit library path (option or NTGCALLS_LIB_PATH)
// 2. Bundle directory (option or NTGCALLS_BUNDLE_DIR)
// 3. ./lib/{os}_{arch}/ (executable, working directory, module root)
// 4. Download cache, fetching the release bundle unless disabled
// 5. System library paths
func LoadLibrary() error {
	libMu.Lock()
	defer libMu.Unlock()

	if libLoaded.Load() {
		return nil
	}

	opts := currentLoaderOptions()
	libPath, downloadErr, err := resolveLibrary(opts)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "LoadLibrary",
		"path":     libPath,
	}).Debug("Loading ntgcalls library")

	handle, err := openLibrary(libPath)
	if err != nil {
		if downloadErr != nil {
			return fmt.Errorf("%w: %s: %w (auto-download failed: %w)", ErrLibraryNotFound, libPath, err, downloadErr)
		}
		return fmt.Errorf("%w: %s: %w", ErrLibraryNotFound, libPath, err)
	}

	libHandle = handle
	if err := registerFunctions(handle); err != nil {
		_ = closeLibrary(handle)
		libHandle = 0
		return err
	}

	libLoaded.Store(true)
	return nil
}

// MustLoadLibrary loads the library and panics on failure.
func MustLoadLibrary() {
	if err := LoadLibrary(); err != nil {
		panic(fmt.Sprintf("libntgcalls: %v", err))
	}
}

// IsLoaded returns true if the engine library is loaded.
// Thread-safe due to atomic.Bool.
func IsLoaded() bool {
	return libLoaded.Load()
}

// Close unloads the engine library. Sessions still alive become unusable.
func Close() error {
	libMu.Lock()
	defer libMu.Unlock()

	if !libLoaded.Load() {
		return nil
	}

	if libHandle != 0 {
		if err := closeLibrary(libHandle); err != nil {
			return err
		}
	}

	libLoaded.Store(false)
	libHandle = 0
	fns = Bindings{}
	resetCallbacks()
	return nil
}

func resolveLibrary(opts LoaderOptions) (string, error, error) {
	if path, ok := findLocalLibrary(opts); ok {
		return path, nil, nil
	}

	if opts.DisableDownload {
		return getLibraryName(), nil, nil
	}

	path, err := downloadBundle(opts)
	if err != nil {
		return getLibraryName(), err, nil
	}

	return path, nil, nil
}

func findLocalLibrary(opts LoaderOptions) (string, bool) {
	if opts.LibPath != "" {
		if _, err := os.Stat(opts.LibPath); err == nil {
			return opts.LibPath, true
		}
	}

	libName := getLibraryName()

	if opts.BundleDir != "" {
		path := filepath.Join(opts.BundleDir, libName)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}

	platformDir := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)

	var searchPaths []string

	// Check relative to executable
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		searchPaths = append(searchPaths,
			filepath.Join(execDir, libName),
			filepath.Join(execDir, "lib", platformDir, libName),
		)
	}

	// Check working directory
	if wd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(wd, "lib", platformDir, libName),
			filepath.Join(wd, "..", "lib", platformDir, libName),
			filepath.Join(wd, "..", "..", "lib", platformDir, libName),
		)
	}

	// Check relative to this source file (for development/testing)
	_, thisFile, _, ok := runtime.Caller(0)
	if ok {
		// thisFile is .../internal/ffi/lib.go, go up to module root
		moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
		searchPaths = append(searchPaths, filepath.Join(moduleRoot, "lib", platformDir, libName))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			absPath, _ := filepath.Abs(path)
			return absPath, true
		}
	}

	return "", false
}

func getLibraryName() string {
	return getLibraryNameFor(runtime.GOOS)
}

func getLibraryNameFor(goos string) string {
	switch goos {
	case "darwin":
		return "libntgcalls.dylib"
	case "windows":
		return "ntgcalls.dll"
	default:
		return "libntgcalls.so"
	}
}
