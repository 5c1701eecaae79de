package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/catalog"
	"github.com/leonardotrapani/speakswap/internal/config"
	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/recognizer"
	"github.com/leonardotrapani/speakswap/internal/recording"
	"github.com/leonardotrapani/speakswap/internal/session"
	"github.com/leonardotrapani/speakswap/internal/store"
	"github.com/leonardotrapani/speakswap/internal/synthesizer"
	"github.com/leonardotrapani/speakswap/internal/translator"
)

// app holds the stores shared by every session the process creates.
type app struct {
	log     *zap.Logger
	db      *store.DB
	catalog *catalog.Catalog
	history *history.Store
}

func openDB(cfg *config.Config, logger *zap.Logger) (*store.DB, error) {
	opts, err := cfg.ToStoreOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger
	db, err := store.Open(opts)
	if errors.Is(err, store.ErrLocked) {
		return nil, fmt.Errorf("%w; stop it with 'speakswap stop'", err)
	}
	return db, err
}

func openApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	c, err := catalog.New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := c.Seed(context.Background()); err != nil {
		c.Close()
		db.Close()
		return nil, err
	}

	h, err := history.New(db, logger)
	if err != nil {
		c.Close()
		db.Close()
		return nil, err
	}

	return &app{log: logger, db: db, catalog: c, history: h}, nil
}

// newSession builds a session whose adapters follow cfg.
func (a *app) newSession(cfg *config.Config) (*session.Session, error) {
	trCfg := cfg.ToTranslatorConfig()
	trCfg.Logger = a.log
	tr, err := translator.NewAdapter(trCfg)
	if err != nil {
		return nil, fmt.Errorf("translator: %w", err)
	}

	source := recording.NewRecorder(cfg.ToRecordingConfig(), a.log)
	rec := recognizer.NewWhisper(cfg.ToRecognizerConfig(), source, a.log)
	syn := synthesizer.NewOpenAI(cfg.ToSynthesizerConfig(), a.log)

	return session.New(session.Deps{
		Catalog:     a.catalog,
		History:     a.history,
		Translator:  tr,
		Recognizer:  rec,
		Synthesizer: syn,
		Locale:      cfg.Locale(),
		Logger:      a.log,
	}), nil
}

func (a *app) Close() {
	a.history.Close()
	a.catalog.Close()
	if err := a.db.Close(); err != nil {
		a.log.Sugar().Warnf("Store: close: %v", err)
	}
}
