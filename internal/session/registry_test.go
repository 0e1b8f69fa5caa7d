package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T, shell string) *Registry {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Shell = shell
	cfg.KillGrace = 200 * time.Millisecond
	r := NewRegistry(cfg, zap.NewNop())
	t.Cleanup(r.Close)
	return r
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestCreateDuplicateName(t *testing.T) {
	r := testRegistry(t, "/bin/sh")

	_, err := r.Create("alpha", t.TempDir(), 80, 24)
	require.NoError(t, err)

	_, err = r.Create("alpha", t.TempDir(), 80, 24)
	require.ErrorIs(t, err, ErrAlreadyExists)

	// The existing session's handles are untouched by the failed create.
	_, err = r.Capture("alpha", 500)
	assert.NoError(t, err)
	sess, ok := r.Get("alpha")
	require.True(t, ok)
	assert.True(t, sess.Alive())
}

func TestLifecycleScenario(t *testing.T) {
	r := testRegistry(t, "/bin/sh")
	dir := t.TempDir()

	info, err := r.Create("alpha", dir, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, "alpha", info.Name)
	assert.Equal(t, dir, info.WorkDir)
	assert.True(t, strings.HasPrefix(info.ID, "term_"))

	_, err = r.Capture("alpha", 500)
	require.NoError(t, err)

	require.NoError(t, r.Kill("alpha"))
	assert.Empty(t, r.List())

	err = r.Kill("alpha")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSpawnFailure(t *testing.T) {
	r := testRegistry(t, "/nonexistent/shell-binary")

	_, err := r.Create("broken", t.TempDir(), 80, 24)
	require.Error(t, err)
	var spawnErr *SpawnError
	assert.ErrorAs(t, err, &spawnErr)

	// Nothing was registered.
	assert.Empty(t, r.List())
	_, err = r.Capture("broken", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderingAndStability(t *testing.T) {
	r := testRegistry(t, "/bin/sh")

	_, err := r.Create("bravo", t.TempDir(), 80, 24)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = r.Create("alpha", t.TempDir(), 80, 24)
	require.NoError(t, err)

	names := func() []string {
		var out []string
		for _, info := range r.List() {
			out = append(out, info.Name)
		}
		return out
	}

	first := names()
	assert.Equal(t, []string{"bravo", "alpha"}, first)
	// Consecutive sweeps with no exits return identical ordered names.
	assert.Equal(t, first, names())
}

func TestListSweepsExitedProcess(t *testing.T) {
	r := testRegistry(t, "/bin/true")

	_, err := r.Create("shortlived", t.TempDir(), 80, 24)
	require.NoError(t, err)

	sess, ok := r.Get("shortlived")
	require.True(t, ok)
	require.True(t, waitFor(t, 3*time.Second, func() bool { return !sess.Alive() }))

	assert.Empty(t, r.List())
	_, ok = r.Get("shortlived")
	assert.False(t, ok, "no dangling entry after sweep")
}

func TestRename(t *testing.T) {
	r := testRegistry(t, "/bin/sh")

	require.ErrorIs(t, r.Rename("ghost", "other"), ErrNotFound)

	_, err := r.Create("old", t.TempDir(), 80, 24)
	require.NoError(t, err)
	_, err = r.Create("taken", t.TempDir(), 80, 24)
	require.NoError(t, err)

	err = r.Rename("old", "taken")
	require.ErrorIs(t, err, ErrAlreadyExists)
	// Failure leaves the source untouched.
	_, err = r.Capture("old", 10)
	assert.NoError(t, err)

	require.NoError(t, r.Rename("old", "new"))
	_, err = r.Capture("old", 10)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Capture("new", 10)
	assert.NoError(t, err)
}

func TestResize(t *testing.T) {
	r := testRegistry(t, "/bin/sh")

	_, err := r.Create("alpha", t.TempDir(), 80, 24)
	require.NoError(t, err)

	require.NoError(t, r.Resize("alpha", 80, 24)) // no-op
	require.NoError(t, r.Resize("alpha", 120, 40))

	sess, _ := r.Get("alpha")
	w, h := sess.Screen().Size()
	assert.Equal(t, 120, w)
	assert.Equal(t, 40, h)

	require.ErrorIs(t, r.Resize("ghost", 80, 24), ErrNotFound)
}

func TestSendTextEchoesThroughGrid(t *testing.T) {
	r := testRegistry(t, "/bin/cat")

	_, err := r.Create("echo", t.TempDir(), 80, 24)
	require.NoError(t, err)

	require.NoError(t, r.SendText("echo", "hello-grid"))

	ok := waitFor(t, 3*time.Second, func() bool {
		content, err := r.Capture("echo", 500)
		return err == nil && strings.Contains(content, "hello-grid")
	})
	assert.True(t, ok, "typed text should appear in the captured grid")

	require.ErrorIs(t, r.SendText("ghost", "x"), ErrNotFound)
}

func TestCaptureUnknown(t *testing.T) {
	r := testRegistry(t, "/bin/sh")
	_, err := r.Capture("nope", 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttachUnknownIsNoop(t *testing.T) {
	r := testRegistry(t, "/bin/sh")
	assert.NoError(t, r.Attach("ghost"))
}

func TestAttachDeadSessionReturnsPromptly(t *testing.T) {
	r := testRegistry(t, "/bin/true")

	_, err := r.Create("gone", t.TempDir(), 80, 24)
	require.NoError(t, err)
	sess, _ := r.Get("gone")
	require.True(t, waitFor(t, 3*time.Second, func() bool { return !sess.Alive() }))

	done := make(chan error, 1)
	go func() { done <- r.Attach("gone") }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("attach to a dead session must not spin")
	}
}

func TestDetachClearsForwarding(t *testing.T) {
	r := testRegistry(t, "/bin/sh")

	_, err := r.Create("alpha", t.TempDir(), 80, 24)
	require.NoError(t, err)
	sess, _ := r.Get("alpha")

	var sink strings.Builder
	sess.startForward(&sink)
	assert.True(t, sess.forwarding())

	r.Detach("alpha")
	assert.False(t, sess.forwarding())

	// Detaching an unknown name is a no-op.
	r.Detach("ghost")
}

func TestKillJoinsReader(t *testing.T) {
	r := testRegistry(t, "/bin/sh")

	_, err := r.Create("alpha", t.TempDir(), 80, 24)
	require.NoError(t, err)
	sess, _ := r.Get("alpha")

	require.NoError(t, r.Kill("alpha"))
	select {
	case <-sess.readerDone:
	default:
		t.Fatal("reader loop must be joined before kill returns")
	}
	assert.False(t, sess.Alive())
}

func TestErrorTaxonomy(t *testing.T) {
	spawn := &SpawnError{Name: "x", Err: errors.New("boom")}
	assert.Contains(t, spawn.Error(), "boom")
	assert.Equal(t, "boom", errors.Unwrap(spawn).Error())

	ioErr := &IoError{Name: "x", Op: "send", Err: errors.New("pipe")}
	assert.Contains(t, ioErr.Error(), "send")
	assert.Equal(t, "pipe", errors.Unwrap(ioErr).Error())
}
