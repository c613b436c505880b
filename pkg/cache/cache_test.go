/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cache_test.go
Description: Unit tests for the record/replay response cache. Verifies the
record-then-replay round trip, exact-prompt addressing, the store file naming
scheme, corrupt store recovery, and the recording and replay transports.
*/

package cache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-validator/pkg/cache"
)

type pairFiles struct {
	source string
	test   string
}

func writePair(t *testing.T, dir string) pairFiles {
	t.Helper()
	source := filepath.Join(dir, "app.py")
	test := filepath.Join(dir, "test_app.py")
	require.NoError(t, os.WriteFile(source, []byte("def add(a, b):\n    return a + b\n"), 0644))
	require.NoError(t, os.WriteFile(test, []byte("def test_add():\n    assert True\n"), 0644))
	return pairFiles{source: source, test: test}
}

func TestRecordThenReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	recorder := cache.NewStore(responsesDir, "suite", true, nil)
	require.NoError(t, recorder.Record(pair.source, pair.test, "generate a test", "def test_gen(): pass", 120, 45))

	replayer := cache.NewStore(responsesDir, "suite", false, nil)
	entry, err := replayer.Lookup(pair.source, pair.test, "generate a test")
	require.NoError(t, err)

	assert.Equal(t, "generate a test", entry.Prompt)
	assert.Equal(t, "def test_gen(): pass", entry.Response)
	assert.Equal(t, 120, entry.PromptTokens)
	assert.Equal(t, 45, entry.CompletionTokens)
	assert.NotEmpty(t, entry.FilesHash)
}

func TestLookupMissesOnDifferentPrompt(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	recorder := cache.NewStore(responsesDir, "suite", true, nil)
	require.NoError(t, recorder.Record(pair.source, pair.test, "generate a test", "resp", 1, 1))

	replayer := cache.NewStore(responsesDir, "suite", false, nil)
	// One changed character is a different address.
	_, err := replayer.Lookup(pair.source, pair.test, "generate a test!")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestLookupAlwaysMissesInRecordMode(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)

	store := cache.NewStore(filepath.Join(dir, "responses"), "suite", true, nil)
	require.NoError(t, store.Record(pair.source, pair.test, "p", "r", 1, 1))

	_, err := store.Lookup(pair.source, pair.test, "p")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestRecordIsNoOpInReplayMode(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	store := cache.NewStore(responsesDir, "suite", false, nil)
	require.NoError(t, store.Record(pair.source, pair.test, "p", "r", 1, 1))

	_, err := store.Lookup(pair.source, pair.test, "p")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestStoreFileNaming(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	store := cache.NewStore(responsesDir, "mysession", true, nil)
	require.NoError(t, store.Record(pair.source, pair.test, "p", "r", 1, 1))

	entries, err := os.ReadDir(responsesDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, "mysession_responses_"), name)
	assert.True(t, strings.HasSuffix(name, ".yml"), name)
}

func TestRecordOverwritesSamePrompt(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	recorder := cache.NewStore(responsesDir, "suite", true, nil)
	require.NoError(t, recorder.Record(pair.source, pair.test, "p", "first", 1, 1))
	require.NoError(t, recorder.Record(pair.source, pair.test, "p", "second", 2, 2))

	replayer := cache.NewStore(responsesDir, "suite", false, nil)
	entry, err := replayer.Lookup(pair.source, pair.test, "p")
	require.NoError(t, err)
	assert.Equal(t, "second", entry.Response)
	assert.Equal(t, 2, entry.PromptTokens)
}

func TestRecordRebuildsCorruptStore(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	recorder := cache.NewStore(responsesDir, "suite", true, nil)
	require.NoError(t, recorder.Record(pair.source, pair.test, "p", "r", 1, 1))

	// Corrupt the store on disk; the next record starts fresh.
	entries, err := os.ReadDir(responsesDir)
	require.NoError(t, err)
	storePath := filepath.Join(responsesDir, entries[0].Name())
	require.NoError(t, os.WriteFile(storePath, []byte("{not yaml: ["), 0644))

	require.NoError(t, recorder.Record(pair.source, pair.test, "q", "r2", 1, 1))

	replayer := cache.NewStore(responsesDir, "suite", false, nil)
	entry, err := replayer.Lookup(pair.source, pair.test, "q")
	require.NoError(t, err)
	assert.Equal(t, "r2", entry.Response)
}

// fakeModel is a scripted live transport for the recording wrapper.
type fakeModel struct {
	response string
	err      error
	calls    int
}

func (f *fakeModel) Call(ctx context.Context, prompt string) (string, int, int, error) {
	f.calls++
	if f.err != nil {
		return "", 0, 0, f.err
	}
	return f.response, 10, 20, nil
}

func TestRecordingCallerPersistsResponses(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)
	responsesDir := filepath.Join(dir, "responses")

	store := cache.NewStore(responsesDir, "suite", true, nil)
	model := &fakeModel{response: "generated test"}
	recording := cache.NewRecordingCaller(model, store, pair.source, pair.test, nil)

	text, promptTokens, completionTokens, err := recording.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated test", text)
	assert.Equal(t, 10, promptTokens)
	assert.Equal(t, 20, completionTokens)

	replayer := cache.NewReplayCaller(cache.NewStore(responsesDir, "suite", false, nil), pair.source, pair.test, nil)
	replayText, replayPrompt, replayCompletion, err := replayer.Call(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, text, replayText)
	assert.Equal(t, promptTokens, replayPrompt)
	assert.Equal(t, completionTokens, replayCompletion)
	assert.Equal(t, 1, model.calls)
}

func TestRecordingCallerPropagatesLiveErrors(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)

	store := cache.NewStore(filepath.Join(dir, "responses"), "suite", true, nil)
	model := &fakeModel{err: errors.New("rate limited")}
	recording := cache.NewRecordingCaller(model, store, pair.source, pair.test, nil)

	_, _, _, err := recording.Call(context.Background(), "prompt")
	require.Error(t, err)

	// Nothing was persisted for the failed call.
	replayer := cache.NewStore(filepath.Join(dir, "responses"), "suite", false, nil)
	_, err = replayer.Lookup(pair.source, pair.test, "prompt")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestReplayCallerFailsFastOnMiss(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir)

	store := cache.NewStore(filepath.Join(dir, "responses"), "suite", false, nil)
	replayer := cache.NewReplayCaller(store, pair.source, pair.test, nil)

	_, _, _, err := replayer.Call(context.Background(), "never recorded")
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
