package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable wraps failures to reach the audio system (pw-record missing,
// PipeWire not running).
var ErrUnavailable = errors.New("audio capture unavailable")

// AudioFrame is one chunk of signed 16-bit little-endian PCM together with
// its loudness.
type AudioFrame struct {
	Data      []byte
	Level     Level
	Timestamp time.Time
}

// Source captures microphone audio. Start returns a frame channel that is
// closed when capture ends and an error channel carrying at most one error.
type Source interface {
	Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error)
	Stop() error
}

type Config struct {
	SampleRate int
	Channels   int
	// Format is the pw-record sample format. Only "s16" is understood by
	// the level meter and the WAV encoder.
	Format            string
	BufferSize        int
	Device            string
	ChannelBufferSize int
}

func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		Channels:          1,
		Format:            "s16",
		BufferSize:        8192,
		ChannelBufferSize: 30,
	}
}

// Recorder streams microphone audio from a pw-record child process.
type Recorder struct {
	config Config
	log    *zap.SugaredLogger
	active atomic.Bool

	mu     sync.Mutex // guards proc and cancel
	proc   *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewRecorder(config Config, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{config: config, log: logger.Named("recording").Sugar()}
}

func (r *Recorder) IsRecording() bool {
	return r.active.Load()
}

func (r *Recorder) Start(ctx context.Context) (<-chan AudioFrame, <-chan error, error) {
	if !r.active.CompareAndSwap(false, true) {
		return nil, nil, fmt.Errorf("already recording")
	}
	if err := r.validateConfig(); err != nil {
		r.active.Store(false)
		return nil, nil, err
	}
	if err := CheckPipeWireAvailable(ctx); err != nil {
		r.active.Store(false)
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	proc := exec.CommandContext(runCtx, "pw-record", r.buildPwRecordArgs()...)
	stdout, err := proc.StdoutPipe()
	if err != nil {
		cancel()
		r.active.Store(false)
		return nil, nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		cancel()
		r.active.Store(false)
		return nil, nil, fmt.Errorf("create stderr pipe: %w", err)
	}
	if err := proc.Start(); err != nil {
		cancel()
		r.active.Store(false)
		return nil, nil, fmt.Errorf("%w: start pw-record: %v", ErrUnavailable, err)
	}

	r.mu.Lock()
	r.proc = proc
	r.cancel = cancel
	r.mu.Unlock()

	go r.drainStderr(stderr)

	frames := make(chan AudioFrame, r.config.ChannelBufferSize)
	errs := make(chan error, 1)
	r.wg.Add(1)
	go r.pump(runCtx, stdout, frames, errs)

	return frames, errs, nil
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Wait blocks until the current capture has fully shut down.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// pump reads fixed-size chunks so every frame holds whole samples. A slow
// consumer loses frames rather than stalling pw-record.
func (r *Recorder) pump(ctx context.Context, stdout io.Reader, frames chan<- AudioFrame, errs chan<- error) {
	var dropped int
	defer func() {
		if dropped > 0 {
			r.log.Warnf("Recording: dropped %d frames, consumer too slow", dropped)
		}
		close(frames)
		close(errs)

		r.mu.Lock()
		proc := r.proc
		r.proc = nil
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.mu.Unlock()
		if proc != nil {
			_ = proc.Wait()
		}
		r.active.Store(false)
		r.wg.Done()
	}()

	chunk := r.config.BufferSize - r.config.BufferSize%sampleBytes(r.config.Channels)
	if chunk <= 0 {
		chunk = sampleBytes(r.config.Channels)
	}

	for {
		buf := make([]byte, chunk)
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			frame := AudioFrame{Data: buf[:n], Level: Measure(buf[:n]), Timestamp: time.Now()}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			default:
				dropped++
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), ctx.Err() != nil:
			return
		default:
			err = fmt.Errorf("read audio: %w", err)
			r.log.Errorf("Recording error: %v", err)
			errs <- err
			return
		}
	}
}

func (r *Recorder) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		r.log.Debugf("pw-record: %s", scanner.Text())
	}
}

func sampleBytes(channels int) int {
	return 2 * channels
}

func (r *Recorder) buildPwRecordArgs() []string {
	args := []string{
		"--format", r.config.Format,
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return append(args, "-")
}

// CheckPipeWireAvailable reports whether pw-record exists and the PipeWire
// daemon answers.
func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(checkCtx, "pw-cli", "info").Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}

func (r *Recorder) validateConfig() error {
	switch {
	case r.config.SampleRate <= 0:
		return fmt.Errorf("invalid SampleRate: %d", r.config.SampleRate)
	case r.config.Channels <= 0:
		return fmt.Errorf("invalid Channels: %d", r.config.Channels)
	case r.config.BufferSize <= 0:
		return fmt.Errorf("invalid BufferSize: %d", r.config.BufferSize)
	case r.config.ChannelBufferSize <= 0:
		return fmt.Errorf("invalid ChannelBufferSize: %d", r.config.ChannelBufferSize)
	case r.config.Format != "s16":
		return fmt.Errorf("unsupported Format: %q (want s16)", r.config.Format)
	}
	return nil
}
