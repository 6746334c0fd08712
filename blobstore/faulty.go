package blobstore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by FaultyStore rules.
var ErrInjected = errors.New("injected fault error")

// Op identifies a BlobStore operation for fault injection.
type Op string

const (
	OpOpen        Op = "open"
	OpCreate      Op = "create"
	OpPut         Op = "put"
	OpPutIfAbsent Op = "put-if-absent"
	OpDelete      Op = "delete"
	OpList        Op = "list"
)

// Fault defines a failure for operations on blobs whose name contains Pattern.
type Fault struct {
	Op      Op
	Pattern string
	Err     error
	// Times limits how often the fault fires. Zero means always.
	Times int
}

// FaultyStore is a BlobStore wrapper that can inject errors.
// It is intended for tests of crash and I/O failure paths.
type FaultyStore struct {
	BlobStore

	mu     sync.Mutex
	faults []*Fault
	fired  map[*Fault]int
}

// NewFaultyStore wraps store.
func NewFaultyStore(store BlobStore) *FaultyStore {
	return &FaultyStore{
		BlobStore: store,
		fired:     make(map[*Fault]int),
	}
}

// AddFault registers a fault rule.
func (s *FaultyStore) AddFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Err == nil {
		f.Err = ErrInjected
	}
	s.faults = append(s.faults, &f)
}

// Reset removes all fault rules.
func (s *FaultyStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
	s.fired = make(map[*Fault]int)
}

func (s *FaultyStore) check(op Op, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.faults {
		if f.Op != op || !strings.Contains(name, f.Pattern) {
			continue
		}
		if f.Times > 0 && s.fired[f] >= f.Times {
			continue
		}
		s.fired[f]++
		return f.Err
	}
	return nil
}

func (s *FaultyStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := s.check(OpOpen, name); err != nil {
		return nil, err
	}
	return s.BlobStore.Open(ctx, name)
}

func (s *FaultyStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := s.check(OpCreate, name); err != nil {
		return nil, err
	}
	return s.BlobStore.Create(ctx, name)
}

func (s *FaultyStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.check(OpPut, name); err != nil {
		return err
	}
	return s.BlobStore.Put(ctx, name, data)
}

func (s *FaultyStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	if err := s.check(OpPutIfAbsent, name); err != nil {
		return err
	}
	return s.BlobStore.PutIfAbsent(ctx, name, data)
}

func (s *FaultyStore) Delete(ctx context.Context, name string) error {
	if err := s.check(OpDelete, name); err != nil {
		return err
	}
	return s.BlobStore.Delete(ctx, name)
}

func (s *FaultyStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.check(OpList, prefix); err != nil {
		return nil, err
	}
	return s.BlobStore.List(ctx, prefix)
}
