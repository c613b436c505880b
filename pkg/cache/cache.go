/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cache.go
Description: Content-addressed response cache for the Akaylee Validator. Maps a
fingerprint of (source content, test content, prompt payload) to a previously
observed model response so iterative sessions replay deterministically without a
live model endpoint. One YAML store per source/test pair, keyed inside by the
prompt hash.
*/

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// hashDisplayLength truncates hashes in log output.
const hashDisplayLength = 12

// ErrCacheMiss indicates replay mode found no recorded response for the
// exact prompt. Fatal: a miss means the fixture is not reproducible and
// must never silently degrade to a live call.
var ErrCacheMiss = errors.New("no recorded response for prompt")

// CachedResponse is one recorded model exchange.
type CachedResponse struct {
	Prompt           string `yaml:"prompt"`
	Response         string `yaml:"response"`
	PromptTokens     int    `yaml:"prompt_tokens"`
	CompletionTokens int    `yaml:"completion_tokens"`
	FilesHash        string `yaml:"files_hash"`
}

// Store is the on-disk record/replay store. In record mode Lookup always
// misses and Record persists; in replay mode Record is a no-op and Lookup
// must hit. Reads and writes within a session are sequential; writes
// replace the backing file atomically.
type Store struct {
	baseDir     string
	sessionName string
	recordMode  bool
	logger      *logrus.Logger

	filesHashes map[string]string // memoized per source|test pair
}

// NewStore creates a response cache rooted at baseDir. sessionName prefixes
// the store file names so separate suites never collide.
func NewStore(baseDir string, sessionName string, recordMode bool, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if sessionName == "" {
		sessionName = "default"
	}
	return &Store{
		baseDir:     baseDir,
		sessionName: sessionName,
		recordMode:  recordMode,
		logger:      logger,
		filesHashes: make(map[string]string),
	}
}

// RecordMode reports whether the store persists new responses.
func (s *Store) RecordMode() bool { return s.recordMode }

// Lookup returns the recorded response for the exact prompt previously
// recorded against this source/test pair. In record mode it always reports
// a miss. A miss is returned as ErrCacheMiss.
func (s *Store) Lookup(sourceFile, testFile, prompt string) (*CachedResponse, error) {
	if s.recordMode {
		s.logger.Debug("Record mode active, skipping cache lookup")
		return nil, ErrCacheMiss
	}

	path, err := s.responseFilePath(sourceFile, testFile)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(path)
	if err != nil {
		return nil, err
	}

	promptHash := hashString(prompt)
	entry, ok := entries[promptHash]
	if !ok {
		s.logger.WithField("prompt_hash", promptHash[:hashDisplayLength]).Debug("Cache miss")
		return nil, ErrCacheMiss
	}

	s.logger.WithField("prompt_hash", promptHash[:hashDisplayLength]).Info("Replaying recorded response")
	return &entry, nil
}

// Record persists a response keyed by the prompt hash, overwriting any
// previous entry for the same key. A no-op in replay mode.
func (s *Store) Record(sourceFile, testFile, prompt, response string, promptTokens, completionTokens int) error {
	if !s.recordMode {
		s.logger.Debug("Replay mode active, skipping response record")
		return nil
	}

	path, err := s.responseFilePath(sourceFile, testFile)
	if err != nil {
		return err
	}
	entries, err := s.loadEntries(path)
	if err != nil {
		// A corrupt store is rebuilt rather than appended to.
		s.logger.WithError(err).Warn("Existing response store unreadable, starting fresh")
		entries = make(map[string]CachedResponse)
	}

	filesHash, err := s.filesHash(sourceFile, testFile)
	if err != nil {
		return err
	}
	promptHash := hashString(prompt)
	entries[promptHash] = CachedResponse{
		Prompt:           prompt,
		Response:         response,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		FilesHash:        filesHash,
	}

	s.logger.WithField("prompt_hash", promptHash[:hashDisplayLength]).Info("Recording model response")
	return s.writeEntries(path, entries)
}

// loadEntries reads the YAML store at path; a missing file is an empty store.
func (s *Store) loadEntries(path string) (map[string]CachedResponse, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]CachedResponse), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read response store %q: %w", path, err)
	}
	entries := make(map[string]CachedResponse)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("cannot parse response store %q: %w", path, err)
	}
	return entries, nil
}

// writeEntries replaces the store atomically: write a sibling temp file,
// then rename over the target. Never leaves a partial store behind.
func (s *Store) writeEntries(path string, entries map[string]CachedResponse) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cannot serialize response store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".responses-*.yml")
	if err != nil {
		return fmt.Errorf("cannot create temp store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot close temp store: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot replace response store %q: %w", path, err)
	}
	return nil
}

// responseFilePath names the store for a source/test pair using the coarse
// files hash, keeping one artifact per pair across a long session.
func (s *Store) responseFilePath(sourceFile, testFile string) (string, error) {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create responses directory %q: %w", s.baseDir, err)
	}
	filesHash, err := s.filesHash(sourceFile, testFile)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_responses_%s.yml", s.sessionName, filesHash)
	return filepath.Join(s.baseDir, name), nil
}

// filesHash computes (and memoizes) the coarse content hash of the
// source/test pair: sha256 over the concatenated per-file sha256 digests.
func (s *Store) filesHash(sourceFile, testFile string) (string, error) {
	key := sourceFile + "|" + testFile
	if h, ok := s.filesHashes[key]; ok {
		return h, nil
	}
	sourceHash, err := hashFile(sourceFile)
	if err != nil {
		return "", err
	}
	testHash, err := hashFile(testFile)
	if err != nil {
		return "", err
	}
	h := hashString(sourceHash + testHash)
	s.filesHashes[key] = h
	s.logger.WithField("files_hash", h[:hashDisplayLength]).Debug("Computed files hash")
	return h, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot hash %q: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
