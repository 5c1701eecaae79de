package daemon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leonardotrapani/speakswap/internal/session"
)

// Status is the daemon's reply to a status request.
type Status struct {
	Source      string
	Target      string
	Phase       string
	Error       string
	Listening   bool
	Speaking    bool
	Text        string
	Translation string
}

func statusOf(st session.State) Status {
	s := Status{
		Phase:       st.Phase.Kind.String(),
		Listening:   st.IsListening,
		Speaking:    st.IsSpeaking,
		Text:        st.SourceText,
		Translation: st.TranslatedText,
	}
	if st.SourceLanguage != nil {
		s.Source = st.SourceLanguage.Code
	}
	if st.TargetLanguage != nil {
		s.Target = st.TargetLanguage.Code
	}
	if st.Phase.Kind == session.Error {
		s.Error = st.Phase.Message
	}
	return s
}

// String renders s as the key=value fields of a STATUS line.
func (s Status) String() string {
	return fmt.Sprintf("source=%s target=%s phase=%s error=%q listening=%t speaking=%t text=%q translation=%q",
		orDash(s.Source), orDash(s.Target), s.Phase, s.Error, s.Listening, s.Speaking, s.Text, s.Translation)
}

// ParseStatus parses a "STATUS ..." reply.
func ParseStatus(line string) (Status, error) {
	rest, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), "STATUS ")
	if !ok {
		return Status{}, fmt.Errorf("not a status reply: %q", line)
	}

	var s Status
	for rest != "" {
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			return Status{}, fmt.Errorf("malformed status field %q", rest)
		}
		if strings.HasPrefix(value, `"`) {
			quoted, err := strconv.QuotedPrefix(value)
			if err != nil {
				return Status{}, fmt.Errorf("malformed %s: %w", key, err)
			}
			rest = strings.TrimPrefix(value[len(quoted):], " ")
			if value, err = strconv.Unquote(quoted); err != nil {
				return Status{}, err
			}
		} else {
			value, rest, _ = strings.Cut(value, " ")
		}

		switch key {
		case "source":
			s.Source = fromDash(value)
		case "target":
			s.Target = fromDash(value)
		case "phase":
			s.Phase = value
		case "error":
			s.Error = value
		case "listening":
			s.Listening = value == "true"
		case "speaking":
			s.Speaking = value == "true"
		case "text":
			s.Text = value
		case "translation":
			s.Translation = value
		}
	}
	return s, nil
}

func orDash(code string) string {
	if code == "" {
		return "-"
	}
	return code
}

func fromDash(v string) string {
	if v == "-" {
		return ""
	}
	return v
}
