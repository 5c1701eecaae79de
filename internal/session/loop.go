package session

import (
	"errors"
	"strings"

	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/recognizer"
	"github.com/leonardotrapani/speakswap/internal/synthesizer"
	"github.com/leonardotrapani/speakswap/internal/translator"
)

func (s *Session) loop(listing <-chan []language.Language) {
	defer close(s.loopDone)

	recEvents := s.deps.Recognizer.Events()
	synthEvents := s.deps.Synthesizer.Events()

	for {
		select {
		case <-s.quit:
			return
		case fn := <-s.ops:
			fn()
		case list, ok := <-listing:
			if !ok {
				listing = nil
				continue
			}
			s.onLanguages(list)
		case ev, ok := <-recEvents:
			if !ok {
				recEvents = nil
				continue
			}
			s.onRecognizer(ev)
		case ev, ok := <-synthEvents:
			if !ok {
				synthEvents = nil
				continue
			}
			s.onSynthesizer(ev)
		}
		s.publish()
	}
}

func (s *Session) onLanguages(list []language.Language) {
	s.languages.Set(list)
	if s.bootstrapped || len(list) == 0 {
		return
	}
	s.bootstrapped = true
	if s.st.SourceLanguage != nil || s.st.TargetLanguage != nil {
		return
	}
	s.bootstrap(list)
}

// bootstrap picks the initial pair: the preferred language (or English) as
// source and the first favorite that differs from it as target.
func (s *Session) bootstrap(list []language.Language) {
	var source *language.Language
	if l, ok := language.Find(list, s.deps.Locale()); ok {
		source = ref(l)
	} else if l, ok := language.Find(list, language.English); ok {
		source = ref(l)
	}

	sourceCode := ""
	if source != nil {
		sourceCode = source.Code
	}

	var target *language.Language
	for _, l := range list {
		if l.IsFavorite && l.Code != sourceCode {
			target = ref(l)
			break
		}
	}
	if target == nil {
		for _, l := range list {
			if l.Code != sourceCode {
				target = ref(l)
				break
			}
		}
	}

	s.st.SourceLanguage = source
	s.st.TargetLanguage = target
	s.log.Infof("Session: default languages %s -> %s", code(source), code(target))
}

func (s *Session) setSourceText(text string) {
	s.st.SourceText = text
	s.translate()
}

// translate starts a translation of the current text. Requests are never
// cancelled or sequenced: whichever completes last sets the result.
func (s *Session) translate() {
	text := s.st.SourceText
	if strings.TrimSpace(text) == "" || s.st.SourceLanguage == nil || s.st.TargetLanguage == nil {
		return
	}
	src, dst := s.st.SourceLanguage.Code, s.st.TargetLanguage.Code
	s.st.Phase = Phase{Kind: Loading}

	go func() {
		out, err := s.deps.Translator.Translate(s.background, text, src, dst)
		s.post(func() {
			s.onTranslated(text, src, dst, out, err)
		})
	}()
}

func (s *Session) onTranslated(text, src, dst, out string, err error) {
	if err != nil {
		s.log.Warnf("Session: translation %s -> %s failed: %v", src, dst, err)
		s.st.Phase = errorPhase(translationMessage(err))
		return
	}

	s.st.TranslatedText = out
	s.st.Phase = Phase{Kind: Success}

	entry := history.Entry{
		SourceText:     text,
		TranslatedText: out,
		SourceLanguage: src,
		TargetLanguage: dst,
	}
	go func() {
		if _, err := s.deps.History.Insert(s.background, entry); err != nil {
			s.log.Warnf("Session: saving history failed: %v", err)
		}
	}()
}

func (s *Session) onRecognizer(ev recognizer.Event) {
	switch ev.State {
	case recognizer.Ready, recognizer.Speaking:
		s.st.IsListening = true
	case recognizer.Result:
		s.setSourceText(ev.Text)
		s.st.IsListening = false
	case recognizer.Failed:
		s.st.Phase = errorPhase(recognitionMessage(ev.Err))
		s.st.IsListening = false
	case recognizer.Idle:
		s.st.IsListening = false
	case recognizer.Partial:
		s.log.Debugf("Session: partial result %q", ev.Text)
	case recognizer.Processing:
	}
}

func (s *Session) onSynthesizer(ev synthesizer.Event) {
	switch ev.State {
	case synthesizer.Speaking:
		s.st.IsSpeaking = true
	case synthesizer.Ready, synthesizer.Idle:
		s.st.IsSpeaking = false
	case synthesizer.Failed:
		msg := "speech synthesis failed"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		s.st.Phase = errorPhase(msg)
		s.st.IsSpeaking = false
	}
}

// publish pushes the fields that changed since the last publish, then the
// combined snapshot.
func (s *Session) publish() {
	st, prev := s.st, s.pub

	if !sameLanguage(st.SourceLanguage, prev.SourceLanguage) {
		s.source.Set(st.SourceLanguage)
	}
	if !sameLanguage(st.TargetLanguage, prev.TargetLanguage) {
		s.target.Set(st.TargetLanguage)
	}
	if st.SourceText != prev.SourceText {
		s.sourceText.Set(st.SourceText)
	}
	if st.TranslatedText != prev.TranslatedText {
		s.translated.Set(st.TranslatedText)
	}
	if st.Phase != prev.Phase {
		s.phase.Set(st.Phase)
	}
	if st.IsListening != prev.IsListening {
		s.listening.Set(st.IsListening)
	}
	if st.IsSpeaking != prev.IsSpeaking {
		s.speaking.Set(st.IsSpeaking)
	}
	s.state.Set(st)
	s.pub = st
}

func translationMessage(err error) string {
	var trErr *translator.Error
	if errors.As(err, &trErr) && trErr.Message != "" {
		return trErr.Message
	}
	return err.Error()
}

func recognitionMessage(err *recognizer.Error) string {
	if err == nil {
		return recognizer.Unknown.Message()
	}
	return err.Error()
}

func code(l *language.Language) string {
	if l == nil {
		return "<none>"
	}
	return l.Code
}
