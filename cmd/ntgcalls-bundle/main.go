// Command ntgcalls-bundle pre-fetches the ntgcalls engine bundle into the
// local cache so later program starts do not need network access.
//
// Usage:
//
//	ntgcalls-bundle [-config file] [-version v1.1.3] [-cache dir] [-sha256 hex]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/libntgcalls/pkg/config"
	"github.com/thesyncim/libntgcalls/pkg/ntgcalls"
)

func main() {
	configPath := flag.String("config", "", "TOML or YAML configuration file")
	version := flag.String("version", "", "bundle release tag")
	cacheDir := flag.String("cache", "", "cache root directory")
	url := flag.String("url", "", "explicit bundle URL")
	sha := flag.String("sha256", "", "expected SHA-256 of the bundle archive")
	timeout := flag.Duration("timeout", 0, "download timeout")
	check := flag.Bool("check", false, "load the fetched library and print its version")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if err := run(*configPath, *version, *cacheDir, *url, *sha, *timeout, *check, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "ntgcalls-bundle: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, version, cacheDir, url, sha string, timeout time.Duration, check, verbose bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if version != "" {
		cfg.Library.BundleVersion = version
	}
	if cacheDir != "" {
		cfg.Library.CacheDir = cacheDir
	}
	if url != "" {
		cfg.Library.BundleURL = url
	}
	if sha != "" {
		cfg.Library.BundleSHA256 = sha
	}
	if timeout > 0 {
		cfg.Library.DownloadTimeout = timeout
	}
	// Fetching is the whole point of this command.
	cfg.Library.DisableDownload = false
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := ntgcalls.Configure(cfg); err != nil {
		return err
	}

	path, err := ntgcalls.FetchBundle(cfg)
	if err != nil {
		return err
	}
	logrus.WithField("path", path).Debug("Bundle ready")
	fmt.Println(path)

	if !check {
		return nil
	}
	cfg.Library.Path = path
	if err := ntgcalls.Configure(cfg); err != nil {
		return err
	}
	v, err := ntgcalls.Version()
	if err != nil {
		return err
	}
	fmt.Printf("ntgcalls %s\n", v)
	return nil
}
