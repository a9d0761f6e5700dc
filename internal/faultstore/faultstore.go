// Package faultstore wraps a blob store with injectable failures for tests.
//
//	fs := faultstore.New(blobstore.NewMemoryStore())
//	fs.AddRule("manifests/", faultstore.Fault{FailPut: true})
//	// hand fs to the component under test
package faultstore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hupe1980/wah/blobstore"
)

// ErrInjected is returned by faults without their own Err.
var ErrInjected = errors.New("faultstore: injected fault")

// Fault selects the operations that fail for matching blob names.
type Fault struct {
	FailOpen   bool
	FailPut    bool
	FailDelete bool
	FailCommit bool
	Err        error
}

// Store is a BlobStore that fails operations according to its rules. It
// forwards Commit when the wrapped store is a blobstore.Committer.
type Store struct {
	inner blobstore.BlobStore

	mu    sync.Mutex
	rules map[string]Fault // name substring -> fault
	calls map[string]int   // op -> count
}

// New wraps inner.
func New(inner blobstore.BlobStore) *Store {
	return &Store{
		inner: inner,
		rules: make(map[string]Fault),
		calls: make(map[string]int),
	}
}

// AddRule applies fault to every blob whose name contains pattern.
func (s *Store) AddRule(pattern string, fault Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[pattern] = fault
}

// Clear removes all rules.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.rules)
}

// Calls returns how often op ("open", "put", "delete", "list", "commit")
// was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[op]
}

func (s *Store) check(op, name string, pick func(Fault) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[op]++

	for pattern, f := range s.rules {
		if strings.Contains(name, pattern) && pick(f) {
			if f.Err != nil {
				return f.Err
			}

			return ErrInjected
		}
	}

	return nil
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if err := s.check("open", name, func(f Fault) bool { return f.FailOpen }); err != nil {
		return nil, err
	}

	return s.inner.Open(ctx, name)
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := s.check("put", name, func(f Fault) bool { return f.FailPut }); err != nil {
		return err
	}

	return s.inner.Put(ctx, name, data)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.check("delete", name, func(f Fault) bool { return f.FailDelete }); err != nil {
		return err
	}

	return s.inner.Delete(ctx, name)
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	s.calls["list"]++
	s.mu.Unlock()

	return s.inner.List(ctx, prefix)
}

// Commit fails for rules matching manifest. Without a Committer underneath it
// writes CURRENT directly.
func (s *Store) Commit(ctx context.Context, version uint64, manifest string) error {
	if err := s.check("commit", manifest, func(f Fault) bool { return f.FailCommit }); err != nil {
		return err
	}

	if c, ok := s.inner.(blobstore.Committer); ok {
		return c.Commit(ctx, version, manifest)
	}

	return s.inner.Put(ctx, blobstore.CurrentName, []byte(manifest))
}
