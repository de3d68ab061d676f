// Package docstore provides the persistent JSON-document backend on
// BadgerDB. Records are stored as JSON documents keyed by collection
// and insertion sequence, and queries run the same evaluator as the
// in-memory backend, so both agree on filter semantics.
package docstore

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

const sequenceBandwidth = 100

// Backend wraps a BadgerDB instance and owns the per-collection
// insertion sequences.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// BackendOption configures a Backend.
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger *slog.Logger
}

// WithLogger routes badger's internal logging through the given
// slog.Logger instead of slog.Default().
func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) {
		o.logger = logger
	}
}

// Open opens a document store at the given directory, creating it when
// absent.
func Open(path string, opts ...BackendOption) (*Backend, error) {
	return open(badger.DefaultOptions(path), opts...)
}

// OpenMemory opens an ephemeral document store backed by process
// memory, suitable for tests.
func OpenMemory(opts ...BackendOption) (*Backend, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), opts...)
}

func open(badgerOpts badger.Options, opts ...BackendOption) (*Backend, error) {
	options := &backendOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	badgerOpts = badgerOpts.WithLogger(&badgerLoggerAdapter{logger: options.logger})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: options.logger,
		seqs:   make(map[string]*badger.Sequence),
	}, nil
}

// Close releases the sequences and closes the underlying database.
func (b *Backend) Close() error {
	b.mu.Lock()
	for _, seq := range b.seqs {
		if err := seq.Release(); err != nil {
			b.logger.Error("releasing sequence", "err", err)
		}
	}
	b.seqs = nil
	b.mu.Unlock()

	return b.db.Close()
}

// nextID allocates the next insertion id for a collection.
func (b *Backend) nextID(collection string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seq, ok := b.seqs[collection]
	if !ok {
		var err error
		seq, err = b.db.GetSequence(sequenceKey(collection), sequenceBandwidth)
		if err != nil {
			return 0, err
		}
		b.seqs[collection] = seq
	}
	return seq.Next()
}
