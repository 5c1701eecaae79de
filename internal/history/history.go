// Package history is the append-only log of completed translations.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/observe"
	"github.com/leonardotrapani/speakswap/internal/store"
)

var ErrNotFound = errors.New("history entry not found")

const prefix = "history"

// Entry is one completed translation. Entries are immutable once stored.
type Entry struct {
	ID             string    `msgpack:"id"`
	SourceText     string    `msgpack:"source_text"`
	TranslatedText string    `msgpack:"translated_text"`
	SourceLanguage string    `msgpack:"source_language"`
	TargetLanguage string    `msgpack:"target_language"`
	Timestamp      time.Time `msgpack:"timestamp"`
}

type Store struct {
	db  *store.DB
	log *zap.SugaredLogger
	now func() time.Time

	mu  sync.Mutex
	all *observe.Value[[]Entry]
}

func New(db *store.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		db:  db,
		log: logger.Named("history").Sugar(),
		now: time.Now,
		all: observe.NewValue[[]Entry](nil),
	}
	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	s.all.Set(entries)
	return s, nil
}

// Insert stores e under a fresh ID and returns the stored entry. A zero
// Timestamp is set to the current time.
func (s *Store) Insert(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.NewString()
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Put(key(e), e); err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	s.log.Debugf("History: stored %s (%s -> %s)", e.ID, e.SourceLanguage, e.TargetLanguage)
	return e, s.publish()
}

// ListAll returns the live history, newest first.
func (s *Store) ListAll(ctx context.Context) <-chan []Entry {
	return s.all.Subscribe(ctx)
}

// ListByLanguagePair returns the live history for one language direction,
// newest first.
func (s *Store) ListByLanguagePair(ctx context.Context, sourceCode, targetCode string) <-chan []Entry {
	return observe.Map(ctx, s.all.Subscribe(ctx), func(entries []Entry) []Entry {
		return observe.Filter(entries, func(e Entry) bool {
			return e.SourceLanguage == sourceCode && e.TargetLanguage == targetCode
		})
	})
}

// Entries returns the current history, newest first.
func (s *Store) Entries() []Entry {
	return s.all.Get()
}

func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	for _, e := range s.all.Get() {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete(key(e)); err != nil {
		return fmt.Errorf("delete history entry: %w", err)
	}
	return s.publish()
}

func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.db.DeletePrefix(store.Key(prefix))
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.log.Infof("History: cleared %d entries", n)
	return s.publish()
}

func (s *Store) Close() {
	s.all.Close()
}

func (s *Store) publish() error {
	entries, err := s.load()
	if err != nil {
		return err
	}
	s.all.Set(entries)
	return nil
}

func (s *Store) load() ([]Entry, error) {
	var entries []Entry
	err := s.db.Scan(store.Key(prefix), func(_ []byte, decode func(any) error) error {
		var e Entry
		if err := decode(&e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// key orders entries by time within the prefix.
func key(e Entry) []byte {
	return store.Key(prefix, fmt.Sprintf("%020d", e.Timestamp.UnixNano()), e.ID)
}
