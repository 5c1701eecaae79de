package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/leonardotrapani/speakswap/internal/history"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/session"
)

const boxWidth = 60

func languageLabel(l *language.Language) string {
	if l == nil {
		return StyleMuted.Render("none")
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.Code)
}

// RenderState draws the session: language pair, both texts and status.
func RenderState(st session.State) string {
	var b strings.Builder

	b.WriteString(StyleLabel.Render(languageLabel(st.SourceLanguage)))
	b.WriteString(StyleMuted.Render("  →  "))
	b.WriteString(StyleLabel.Render(languageLabel(st.TargetLanguage)))
	b.WriteString("\n")

	source := st.SourceText
	if source == "" {
		source = StyleMuted.Render("type or speak something")
	}
	translated := st.TranslatedText
	if translated == "" {
		translated = StyleMuted.Render("translation appears here")
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left,
		StyleSourceBox.Width(boxWidth).Render(source),
		StyleTranslationBox.Width(boxWidth).Render(translated),
	))
	b.WriteString("\n")
	b.WriteString(renderStatus(st))
	return b.String()
}

func renderStatus(st session.State) string {
	var parts []string
	switch st.Phase.Kind {
	case session.Loading:
		parts = append(parts, StyleWarning.Render("translating..."))
	case session.Success:
		parts = append(parts, StyleSuccess.Render("translated"))
	case session.Error:
		parts = append(parts, StyleError.Render("error: "+st.Phase.Message))
	}
	if st.IsListening {
		parts = append(parts, StyleHighlight.Render("● listening"))
	}
	if st.IsSpeaking {
		parts = append(parts, StyleHighlight.Render("♪ speaking"))
	}
	if len(parts) == 0 {
		return StyleMuted.Render("ready")
	}
	return strings.Join(parts, StyleMuted.Render(" · "))
}

// RenderLanguages lists the catalog, one language per line.
func RenderLanguages(list []language.Language) string {
	if len(list) == 0 {
		return StyleMuted.Render("no languages")
	}
	var b strings.Builder
	for _, l := range list {
		star := " "
		if l.IsFavorite {
			star = StyleHighlight.Render("★")
		}
		installed := StyleMuted.Render("not installed")
		if l.IsInstalled {
			installed = StyleSuccess.Render("installed")
		}
		fmt.Fprintf(&b, "%s %-4s %-20s %s\n", star, l.Code, l.Name, installed)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHistory lists history entries, newest first as given.
func RenderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return StyleMuted.Render("no translations yet")
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %s\n",
			StyleMuted.Render(e.Timestamp.Local().Format(time.DateTime)),
			StyleLabel.Render(e.SourceLanguage+" → "+e.TargetLanguage),
			StyleMuted.Render(e.ID))
		fmt.Fprintf(&b, "  %s\n  %s\n", e.SourceText, StyleHighlight.Render(e.TranslatedText))
	}
	return strings.TrimRight(b.String(), "\n")
}
