package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	s := tempStore(t)
	lock, err := s.Acquire()
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	// Released lock can be re-acquired.
	lock, err = s.Acquire()
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestAcquireFailsFastOnContention(t *testing.T) {
	s := tempStore(t)
	lock, err := s.Acquire()
	require.NoError(t, err)
	defer lock.Release()

	_, err = s.Acquire()
	var busy *BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, os.Getpid(), busy.PID)
}

func TestStaleLockFromDeadProcessIsBroken(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	// Pid 1 is alive but we want a dead one: use an absurd pid.
	stale, err := json.Marshal(lockInfo{PID: 99999999, StartedAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "lock"), stale, 0644))

	lock, err := s.Acquire()
	require.NoError(t, err, "a stale lock from a dead process must be broken")
	require.NoError(t, lock.Release())
}

func TestFreshLockFromDeadProcessIsRespected(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	fresh, err := json.Marshal(lockInfo{PID: 99999999, StartedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "lock"), fresh, 0644))

	_, err = s.Acquire()
	var busy *BusyError
	assert.ErrorAs(t, err, &busy, "a recent lock is not broken even if the pid is gone")
}
