package ntgcalls

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/thesyncim/libntgcalls/internal/ffi"
	"github.com/thesyncim/libntgcalls/internal/metrics"
	"github.com/thesyncim/libntgcalls/pkg/config"
)

func init() {
	ffi.CallbackPanicHook = metrics.RecordCallbackPanic
}

// Configure applies cfg: loader options for the next library load, the
// logrus level and formatter, and metric recording.
// It does not reload an already loaded library.
func Configure(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Log.Level != "" {
		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("ntgcalls: configure: %w", err)
		}
		logrus.SetLevel(level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	ffi.SetLoaderOptions(cfg.LoaderOptions())
	metrics.SetEnabled(cfg.Metrics.Enabled)

	logrus.WithFields(logrus.Fields{
		"function": "Configure",
		"level":    cfg.Log.Level,
		"metrics":  cfg.Metrics.Enabled,
	}).Debug("Applied ntgcalls configuration")
	return nil
}

// LoadLibrary loads the engine library using the configured loader options.
// New calls it implicitly.
func LoadLibrary() error {
	return ffi.LoadLibrary()
}

// RegisterMetrics adds the package collectors to reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return metrics.Register(reg)
}

// FetchBundle downloads the engine bundle described by cfg into the cache
// without loading it, and returns the path of the library.
func FetchBundle(cfg config.Config) (string, error) {
	return ffi.FetchBundle(cfg.LoaderOptions())
}
