// Package catalog is the persistent list of known languages with their
// install and favorite flags. Listings are live: every write is pushed to
// all subscribers.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/observe"
	"github.com/leonardotrapani/speakswap/internal/store"
)

var ErrUnknownLanguage = errors.New("unknown language")

const prefix = "lang"

type Catalog struct {
	db  *store.DB
	log *zap.SugaredLogger

	mu  sync.Mutex // serializes write-then-publish
	all *observe.Value[[]language.Language]
}

// New loads the catalog from db.
func New(db *store.DB, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{
		db:  db,
		log: logger.Named("catalog").Sugar(),
		all: observe.NewValue[[]language.Language](nil),
	}
	list, err := c.load()
	if err != nil {
		return nil, err
	}
	c.all.Set(list)
	return c, nil
}

// Seed writes the default languages when the catalog is empty.
func (c *Catalog) Seed(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.all.Get()) > 0 {
		return nil
	}

	records := make(map[string]any)
	for _, l := range language.Defaults() {
		records[string(store.Key(prefix, l.Code))] = l
	}
	if err := c.db.PutAll(records); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	c.log.Infof("Catalog: seeded %d default languages", len(records))
	return c.publish()
}

// ListAll returns the live listing ordered by display name.
func (c *Catalog) ListAll(ctx context.Context) <-chan []language.Language {
	return c.all.Subscribe(ctx)
}

// ListFavorites returns the live listing of favorite languages.
func (c *Catalog) ListFavorites(ctx context.Context) <-chan []language.Language {
	return observe.Map(ctx, c.all.Subscribe(ctx), func(list []language.Language) []language.Language {
		return observe.Filter(list, func(l language.Language) bool { return l.IsFavorite })
	})
}

// Languages returns the current listing.
func (c *Catalog) Languages() []language.Language {
	return c.all.Get()
}

func (c *Catalog) Upsert(ctx context.Context, l language.Language) error {
	if l.Code == "" {
		return fmt.Errorf("upsert language: empty code")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Put(store.Key(prefix, l.Code), l); err != nil {
		return fmt.Errorf("upsert language %s: %w", l.Code, err)
	}
	return c.publish()
}

func (c *Catalog) GetByCode(ctx context.Context, code string) (language.Language, bool, error) {
	var l language.Language
	err := c.db.Get(store.Key(prefix, code), &l)
	if errors.Is(err, store.ErrNotFound) {
		return language.Language{}, false, nil
	}
	if err != nil {
		return language.Language{}, false, fmt.Errorf("get language %s: %w", code, err)
	}
	return l, true, nil
}

// ToggleFavorite stores l with its favorite flag flipped.
func (c *Catalog) ToggleFavorite(ctx context.Context, l language.Language) error {
	l.IsFavorite = !l.IsFavorite
	return c.Upsert(ctx, l)
}

// ToggleInstalled stores l with its installed flag flipped.
func (c *Catalog) ToggleInstalled(ctx context.Context, l language.Language) error {
	l.IsInstalled = !l.IsInstalled
	return c.Upsert(ctx, l)
}

// Close ends all live listings.
func (c *Catalog) Close() {
	c.all.Close()
}

func (c *Catalog) publish() error {
	list, err := c.load()
	if err != nil {
		return err
	}
	c.all.Set(list)
	return nil
}

func (c *Catalog) load() ([]language.Language, error) {
	var list []language.Language
	err := c.db.Scan(store.Key(prefix), func(_ []byte, decode func(any) error) error {
		var l language.Language
		if err := decode(&l); err != nil {
			return err
		}
		list = append(list, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}
