package ntgcalls

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/libntgcalls/internal/ffi"
	"github.com/thesyncim/libntgcalls/internal/metrics"
)

// handleCell owns one engine instance. It is shared by every clone of a
// Session and retired exactly once.
type handleCell struct {
	uid  uint32
	refs atomic.Int64

	// mu is held for reading around native calls and for writing while the
	// cell is retired. The native destroy runs after mu is released: the
	// engine joins its workers there, and a handler still running on one of
	// them may call back into a clone.
	mu      sync.RWMutex
	retired bool
}

func newHandleCell(uid uint32) *handleCell {
	c := &handleCell{uid: uid}
	c.refs.Store(1)
	return c
}

func (c *handleCell) retain() {
	c.refs.Add(1)
}

// use runs fn with the uid while the instance is guaranteed to stay alive.
func (c *handleCell) use(fn func(uid uint32) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.retired {
		return ErrInvalidUID
	}
	return fn(c.uid)
}

// retire marks the cell retired once in-flight operations have drained.
// It reports false if the cell was already retired.
func (c *handleCell) retire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retired {
		return false
	}
	c.retired = true
	ffi.ReleaseCallbacks(c.uid)
	return true
}

// destroy retires the cell and tears down the native instance.
// It reports ErrInvalidUID if the cell was already retired.
func (c *handleCell) destroy() error {
	if !c.retire() {
		return ErrInvalidUID
	}
	return c.teardown()
}

// release drops one reference. The last release tears the instance down if
// nobody destroyed it explicitly; failure is logged and counted only.
func (c *handleCell) release() {
	if c.refs.Add(-1) > 0 {
		return
	}
	if !c.retire() {
		return
	}
	if err := c.teardown(); err != nil {
		metrics.RecordTeardownFailure(metrics.PathImplicit)
		logrus.WithFields(logrus.Fields{
			"function": "handleCell.release",
			"uid":      c.uid,
			"error":    err,
		}).Warn("Implicit ntgcalls teardown failed")
	}
}

func (c *handleCell) teardown() error {
	err := record(opDestroy, func() error { return ffi.Destroy(c.uid) })
	metrics.RecordSessionDestroyed()
	logrus.WithFields(logrus.Fields{
		"function": "handleCell.teardown",
		"uid":      c.uid,
	}).Debug("Destroyed ntgcalls instance")
	return err
}
