// Package daemon runs one long-lived translation session and drives it
// from control socket requests.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/bus"
	"github.com/leonardotrapani/speakswap/internal/config"
	"github.com/leonardotrapani/speakswap/internal/conversation"
	"github.com/leonardotrapani/speakswap/internal/injection"
	"github.com/leonardotrapani/speakswap/internal/language"
	"github.com/leonardotrapani/speakswap/internal/notify"
	"github.com/leonardotrapani/speakswap/internal/session"
)

// Factory builds a session with adapters configured from cfg.
type Factory func(cfg *config.Config) (*session.Session, error)

type Daemon struct {
	log        *zap.Logger
	sugar      *zap.SugaredLogger
	newSession Factory

	mu          sync.RWMutex
	sess        *session.Session
	notifier    notify.Notifier
	injector    injection.Injector
	driver      *conversation.Driver
	watchCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the daemon and its first session.
func New(cfg *config.Config, factory Factory, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		log:        logger,
		sugar:      logger.Named("daemon").Sugar(),
		newSession: factory,
		ctx:        ctx,
		cancel:     cancel,
	}

	s, err := factory(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create session: %w", err)
	}
	d.install(s, cfg)
	return d, nil
}

// Reload replaces the session with one built from cfg. The language pair
// carries over. On failure the current session is kept.
func (d *Daemon) Reload(cfg *config.Config) {
	s, err := d.newSession(cfg)
	if err != nil {
		d.sugar.Errorf("Daemon: reload failed, keeping current session: %v", err)
		return
	}

	old := d.session()
	if src := old.SourceLanguage().Get(); src != nil {
		s.SetSourceLanguage(*src)
	}
	if dst := old.TargetLanguage().Get(); dst != nil {
		s.SetTargetLanguage(*dst)
	}

	d.install(s, cfg)
	old.Close()
	d.sugar.Infof("Daemon: session recreated after config reload")
}

func (d *Daemon) install(s *session.Session, cfg *config.Config) {
	n := notify.Notifier(notify.Nop{})
	if cfg.Notifications.Enabled {
		n = notify.New(cfg.Notifications.Type, d.log)
	}

	inj := injection.NewInjector(cfg.ToInjectionConfig())
	drv := conversation.New(s, cfg.ToConversationOptions(), d.log)

	watchCtx, watchCancel := context.WithCancel(d.ctx)

	d.mu.Lock()
	if d.watchCancel != nil {
		d.watchCancel()
	}
	d.sess = s
	d.notifier = n
	d.injector = inj
	d.driver = drv
	d.watchCancel = watchCancel
	d.mu.Unlock()

	go watch(watchCtx, s.State().Subscribe(watchCtx), n)
	go drv.Run(watchCtx)
}

func (d *Daemon) session() *session.Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sess
}

// Session returns the current session.
func (d *Daemon) Session() *session.Session {
	return d.session()
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.sugar.Infof("Received signal %v, shutting down gracefully", sig)
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	defer d.shutdown()

	d.sugar.Infof("Daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.sugar.Infof("Shutdown requested")
				return nil
			}
			d.sugar.Errorf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// Stop asks Run to return.
func (d *Daemon) Stop() {
	d.cancel()
}

// Done is closed once the daemon has been asked to stop.
func (d *Daemon) Done() <-chan struct{} {
	return d.ctx.Done()
}

func (d *Daemon) shutdown() {
	d.mu.Lock()
	s := d.sess
	if d.watchCancel != nil {
		d.watchCancel()
	}
	d.mu.Unlock()
	s.Close()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		d.sugar.Warnf("Client read error: %v", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	req, err := bus.ParseRequest(line)
	if err != nil {
		if errors.Is(err, bus.ErrEmptyRequest) {
			fmt.Fprint(c, "ERR empty\n")
			return
		}
		fmt.Fprintf(c, "ERR %v\n", err)
		return
	}

	fmt.Fprintln(c, d.dispatch(req))
}

// dispatch executes req against the current session and returns the reply
// line without its trailing newline.
func (d *Daemon) dispatch(req bus.Request) string {
	s := d.session()
	st := s.State().Get()

	switch req.Cmd {
	case bus.CmdToggleListen:
		d.mu.RLock()
		drv := d.driver
		d.mu.RUnlock()
		if st.IsListening {
			drv.End()
			s.StopListening()
			return "OK listening=false"
		}
		if st.SourceLanguage == nil {
			return "ERR no source language"
		}
		drv.Begin()
		s.StartListening()
		return "OK listening=true"

	case bus.CmdSpeak:
		if st.TargetLanguage == nil {
			return "ERR no target language"
		}
		s.SpeakTranslation()
		return "OK speaking=true"

	case bus.CmdHush:
		s.StopSpeaking()
		return "OK speaking=false"

	case bus.CmdText:
		if strings.TrimSpace(req.Arg) == "" {
			return "ERR empty text"
		}
		if st.SourceLanguage == nil || st.TargetLanguage == nil {
			return "ERR select source and target languages first"
		}
		s.SetSourceText(req.Arg)
		if err := s.Sync(d.ctx); err != nil {
			return "ERR " + err.Error()
		}
		return "OK text"

	case bus.CmdSource, bus.CmdTarget:
		l, ok := language.Find(s.Languages().Get(), strings.TrimSpace(req.Arg))
		if !ok {
			return fmt.Sprintf("ERR unknown language %q", req.Arg)
		}
		if req.Cmd == bus.CmdSource {
			s.SetSourceLanguage(l)
			return "OK source=" + l.Code
		}
		s.SetTargetLanguage(l)
		return "OK target=" + l.Code

	case bus.CmdCopy:
		if st.TranslatedText == "" {
			return "ERR nothing to copy"
		}
		d.mu.RLock()
		inj := d.injector
		d.mu.RUnlock()
		if err := inj.Inject(d.ctx, st.TranslatedText); err != nil {
			d.sugar.Warnf("Daemon: copy failed: %v", err)
			return "ERR " + err.Error()
		}
		return "OK copied"

	case bus.CmdStatus:
		return "STATUS " + statusOf(st).String()

	case bus.CmdVersion:
		return "STATUS proto=" + bus.ProtoVer

	case bus.CmdQuit:
		d.cancel()
		return "OK quitting"

	default:
		d.sugar.Warnf("Unknown command: %c", req.Cmd)
		return fmt.Sprintf("ERR unknown=%q", req.Cmd)
	}
}

// watch turns session state changes into notifications.
func watch(ctx context.Context, states <-chan session.State, n notify.Notifier) {
	var prev session.State
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if first {
				prev, first = st, false
				continue
			}
			if st.IsListening != prev.IsListening {
				n.ListeningChanged(st.IsListening)
			}
			if st.Phase != prev.Phase || st.TranslatedText != prev.TranslatedText {
				switch st.Phase.Kind {
				case session.Success:
					n.Translated(st.SourceText, st.TranslatedText)
				case session.Error:
					n.Error(st.Phase.Message)
				}
			}
			prev = st
		}
	}
}
