package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"

	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/injection"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/session"
)

type action string

const (
	actionType      action = "type"
	actionListen    action = "listen"
	actionSpeak     action = "speak"
	actionHush      action = "hush"
	actionCopy      action = "copy"
	actionSource    action = "source"
	actionTarget    action = "target"
	actionClear     action = "clear"
	actionFavorite  action = "favorite"
	actionInstalled action = "installed"
	actionHistory   action = "history"
	actionQuit      action = "quit"
)

const settleTimeout = 45 * time.Second

// History is the part of the history store the interactive session reads.
type History interface {
	Entries() []history.Entry
}

// Run drives s from an interactive terminal menu until the user quits or
// ctx is cancelled. It does not close s.
func Run(ctx context.Context, s *session.Session, hist History, inj injection.Injector) error {
	return run(ctx, os.Stdout, &menu{s: s, hist: hist, inj: inj})
}

type menu struct {
	s    *session.Session
	hist History
	inj  injection.Injector
	// notice is shown once above the state after an action reports back.
	notice string
}

func run(ctx context.Context, out io.Writer, m *menu) error {
	s := m.s
	Setup(out)
	for {
		if ctx.Err() != nil {
			return nil
		}
		clearScreen(out)
		st := s.State().Get()
		fmt.Fprintln(out, Logo())
		fmt.Fprintln(out, RenderState(st))
		if m.notice != "" {
			fmt.Fprintln(out, m.notice)
			m.notice = ""
		}
		fmt.Fprintln(out)

		var choice action
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[action]().
					Title("What next?").
					Options(menuOptions(st)...).
					Value(&choice),
			),
		).WithTheme(getTheme()).RunWithContext(ctx)
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := m.perform(ctx, out, choice); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			return err
		}
	}
}

var errQuit = errors.New("quit")

func (m *menu) perform(ctx context.Context, out io.Writer, choice action) error {
	s := m.s
	switch choice {
	case actionType:
		text := s.SourceText().Get()
		err := huh.NewForm(huh.NewGroup(
			huh.NewText().
				Title("Text to translate").
				Value(&text),
		)).WithTheme(getTheme()).RunWithContext(ctx)
		if err != nil {
			return err
		}
		s.SetSourceText(text)
		return awaitTranslation(ctx, s, func(st session.State) bool { return st.SourceText == text })

	case actionListen:
		if s.IsListening().Get() {
			s.StopListening()
			return nil
		}
		s.StartListening()
		var done bool
		err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Listening").
				Description("Speak now, then confirm to stop.").
				Affirmative("Done").
				Negative("Cancel").
				Value(&done),
		)).WithTheme(getTheme()).RunWithContext(ctx)
		if err != nil || !done {
			s.StopListening()
			return err
		}
		s.StopListening()
		await(ctx, "Recognizing...", s, func(st session.State) bool { return !st.IsListening })
		return awaitTranslation(ctx, s, func(session.State) bool { return true })

	case actionSpeak:
		s.SpeakTranslation()
		return nil

	case actionHush:
		s.StopSpeaking()
		return nil

	case actionCopy:
		if err := m.inj.Inject(ctx, s.TranslatedText().Get()); err != nil {
			m.notice = StyleError.Render("copy failed: " + err.Error())
		} else {
			m.notice = StyleSuccess.Render("copied")
		}
		return nil

	case actionSource, actionTarget:
		l, err := pickLanguage(ctx, s.Languages().Get())
		if err != nil {
			return err
		}
		if choice == actionSource {
			s.SetSourceLanguage(l)
		} else {
			s.SetTargetLanguage(l)
		}
		return awaitTranslation(ctx, s, func(st session.State) bool {
			picked := st.TargetLanguage
			if choice == actionSource {
				picked = st.SourceLanguage
			}
			return picked != nil && picked.Code == l.Code
		})

	case actionClear:
		s.ClearLanguages()
		return nil

	case actionFavorite, actionInstalled:
		l, err := pickLanguage(ctx, s.Languages().Get())
		if err != nil {
			return err
		}
		if choice == actionFavorite {
			s.ToggleFavorite(l)
		} else {
			s.ToggleInstalled(l)
		}
		return nil

	case actionHistory:
		clearScreen(out)
		fmt.Fprintln(out, StyleHeader.Render("History"))
		fmt.Fprintln(out, RenderHistory(m.hist.Entries()))
		fmt.Fprintln(out)
		var back bool
		return huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title("Back to session?").Affirmative("Back").Negative("").Value(&back),
		)).WithTheme(getTheme()).RunWithContext(ctx)

	case actionQuit:
		return errQuit
	}
	return nil
}

func menuOptions(st session.State) []huh.Option[action] {
	listen := "Start listening"
	if st.IsListening {
		listen = "Stop listening"
	}
	opts := []huh.Option[action]{
		huh.NewOption("Type text", actionType),
		huh.NewOption(listen, actionListen),
	}
	if st.IsSpeaking {
		opts = append(opts, huh.NewOption("Stop speaking", actionHush))
	} else if st.TranslatedText != "" {
		opts = append(opts, huh.NewOption("Speak translation", actionSpeak))
	}
	if st.TranslatedText != "" {
		opts = append(opts, huh.NewOption("Copy translation", actionCopy))
	}
	opts = append(opts,
		huh.NewOption("Source language", actionSource),
		huh.NewOption("Target language", actionTarget),
	)
	if st.SourceLanguage != nil || st.TargetLanguage != nil {
		opts = append(opts, huh.NewOption("Clear languages", actionClear))
	}
	return append(opts,
		huh.NewOption("Toggle favorite", actionFavorite),
		huh.NewOption("Toggle installed", actionInstalled),
		huh.NewOption("History", actionHistory),
		huh.NewOption("Quit", actionQuit),
	)
}

// languageOptions puts favorites first, keeping catalog order within each
// group.
func languageOptions(list []language.Language) []huh.Option[string] {
	sorted := append([]language.Language(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IsFavorite && !sorted[j].IsFavorite
	})

	opts := make([]huh.Option[string], 0, len(sorted))
	for _, l := range sorted {
		label := fmt.Sprintf("%s (%s)", l.Name, l.Code)
		if l.IsFavorite {
			label = "★ " + label
		}
		opts = append(opts, huh.NewOption(label, l.Code))
	}
	return opts
}

func pickLanguage(ctx context.Context, list []language.Language) (language.Language, error) {
	opts := languageOptions(list)
	if len(opts) == 0 {
		return language.Language{}, huh.ErrUserAborted
	}
	var code string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Language").
			Options(opts...).
			Filtering(true).
			Value(&code),
	)).WithTheme(getTheme()).RunWithContext(ctx)
	if err != nil {
		return language.Language{}, err
	}
	l, ok := language.Find(list, code)
	if !ok {
		return language.Language{}, huh.ErrUserAborted
	}
	return l, nil
}

// awaitTranslation waits for the state reflecting the user's last change
// to finish translating.
func awaitTranslation(ctx context.Context, s *session.Session, applied func(session.State) bool) error {
	await(ctx, "Translating...", s, func(st session.State) bool {
		return applied(st) && st.Phase.Kind != session.Loading
	})
	return nil
}

// await shows a spinner until cond holds for the session state or the
// settle timeout passes.
func await(ctx context.Context, title string, s *session.Session, cond func(session.State) bool) {
	waitCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	_ = spinner.New().
		Title(title).
		Context(waitCtx).
		Action(func() { waitFor(waitCtx, s.State().Subscribe(waitCtx), cond) }).
		Run()
}

func waitFor(ctx context.Context, states <-chan session.State, cond func(session.State) bool) bool {
	for {
		select {
		case st, ok := <-states:
			if !ok {
				return false
			}
			if cond(st) {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
}
