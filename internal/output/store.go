// Package output writes merge results to disk and checks them for drift.
package output

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/kingrea/contract-composer/internal/merge"
)

// ManifestName is written at the root of every output directory.
const ManifestName = ".composer-manifest.json"

// ErrNoManifest is returned when a directory was not produced by a merge.
var ErrNoManifest = errors.New("output: no manifest")

// State is the outcome of checking one file.
type State string

const (
	StateReady    State = "ready"
	StateMissing  State = "missing"
	StateModified State = "modified"
)

// FileDigest records what was written for one path.
type FileDigest struct {
	Digest string `json:"digest"`
	Size   int    `json:"size"`
}

// Manifest describes a written merge.
type Manifest struct {
	Project     string                `json:"project"`
	Base        string                `json:"base"`
	Modules     []string              `json:"modules"`
	SlotsUsed   []string              `json:"slots_used,omitempty"`
	Fingerprint string                `json:"fingerprint"`
	GeneratedAt time.Time             `json:"generated_at"`
	Files       map[string]FileDigest `json:"files"`
}

// Paths returns the recorded file paths sorted.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Files))
	for path := range m.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// TotalSize sums the recorded file sizes.
func (m Manifest) TotalSize() uint64 {
	var total uint64
	for _, f := range m.Files {
		total += uint64(f.Size)
	}
	return total
}

// CheckResult reports the state of one recorded file.
type CheckResult struct {
	Path     string
	State    State
	Expected string
	Actual   string
}

// Store manages output IO rooted at a directory.
type Store struct {
	root string
	now  func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for manifest timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	store := &Store{root: filepath.Clean(dir), now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Root returns the output directory.
func (s *Store) Root() string {
	return s.root
}

// Write persists every file of a successful merge plus the manifest.
func (s *Store) Write(project string, result merge.Result) (Manifest, error) {
	if !result.Success {
		return Manifest{}, fmt.Errorf("output: refusing to write: %w", result.Err())
	}
	manifest := Manifest{
		Project:     project,
		Base:        result.Stats.Base,
		Modules:     result.Stats.Modules,
		SlotsUsed:   result.Stats.SlotsUsed,
		Fingerprint: result.Stats.Fingerprint,
		GeneratedAt: s.now().UTC(),
		Files:       make(map[string]FileDigest, len(result.Files)),
	}
	for _, rel := range sortedPaths(result.Files) {
		path, err := s.resolve(rel)
		if err != nil {
			return Manifest{}, err
		}
		content := []byte(result.Files[rel])
		if err := writeAtomic(path, content); err != nil {
			return Manifest{}, fmt.Errorf("output: write %s: %w", rel, err)
		}
		manifest.Files[rel] = FileDigest{Digest: Digest(content), Size: len(content)}
	}
	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("output: encode manifest: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.root, ManifestName), append(encoded, '\n')); err != nil {
		return Manifest{}, fmt.Errorf("output: write manifest: %w", err)
	}
	return manifest, nil
}

// ReadManifest loads the manifest of a previous Write.
func (s *Store) ReadManifest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, fmt.Errorf("%w in %s", ErrNoManifest, s.root)
		}
		return Manifest{}, fmt.Errorf("output: read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("output: parse manifest: %w", err)
	}
	return manifest, nil
}

// Check compares every recorded file against the disk.
func (s *Store) Check() (Manifest, []CheckResult, error) {
	manifest, err := s.ReadManifest()
	if err != nil {
		return Manifest{}, nil, err
	}
	results := make([]CheckResult, 0, len(manifest.Files))
	for _, rel := range manifest.Paths() {
		want := manifest.Files[rel]
		res := CheckResult{Path: rel, Expected: want.Digest}
		path, err := s.resolve(rel)
		if err != nil {
			return manifest, nil, err
		}
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			res.State = StateMissing
		case err != nil:
			return manifest, nil, fmt.Errorf("output: read %s: %w", rel, err)
		default:
			res.Actual = Digest(data)
			if res.Actual == want.Digest {
				res.State = StateReady
			} else {
				res.State = StateModified
			}
		}
		results = append(results, res)
	}
	return manifest, results, nil
}

// Digest returns the hex blake3 digest of content.
func Digest(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// resolve maps a slash path from a merge result under the root, rejecting
// paths that would escape it.
func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output: path %q escapes the output directory", rel)
	}
	return filepath.Join(s.root, clean), nil
}

func writeAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
