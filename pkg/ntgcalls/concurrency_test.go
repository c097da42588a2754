package ntgcalls_test

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/thesyncim/libntgcalls/internal/ffi/ffitest"
	"github.com/thesyncim/libntgcalls/pkg/ntgcalls"
)

func TestConcurrentOperations(t *testing.T) {
	ffitest.Install(t)
	s := newSession(t)
	for chatID := int64(1); chatID <= 4; chatID++ {
		connect(t, s, chatID)
	}

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		ref := s.Clone()
		chatID := int64(i%4 + 1)
		g.Go(func() error {
			defer ref.Close()
			for j := 0; j < 100; j++ {
				if _, err := ref.Mute(chatID); err != nil {
					return err
				}
				if _, err := ref.Unmute(chatID); err != nil {
					return err
				}
				calls, err := ref.Calls()
				if err != nil {
					return err
				}
				if len(calls) != 4 {
					return errors.New("unexpected call count")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestConcurrentDestroyHappensOnce(t *testing.T) {
	engine := ffitest.Install(t)
	s := newSession(t)

	var g errgroup.Group
	var destroyed, invalid atomic.Int32
	for i := 0; i < 32; i++ {
		ref := s.Clone()
		g.Go(func() error {
			defer ref.Close()
			if i%2 == 0 {
				_, err := ref.CountCalls()
				if err != nil && !errors.Is(err, ntgcalls.ErrInvalidUID) {
					return err
				}
				return nil
			}
			switch err := ref.Destroy(); {
			case err == nil:
				destroyed.Add(1)
			case errors.Is(err, ntgcalls.ErrInvalidUID):
				invalid.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), destroyed.Load())
	assert.Equal(t, int32(15), invalid.Load())
	assert.Equal(t, 1, engine.NativeCalls(ffitest.OpDestroy))
	assert.False(t, engine.Live(s.UID()))
}
