// Package transcriber turns recorded media into text through an AI backend,
// retrying transient failures with bounded exponential backoff and mapping
// the backend's silence sentinels to typed results.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ykdojo/osh/log"
)

// Kind classifies what the backend produced.
type Kind int

const (
	// KindText is a real transcript.
	KindText Kind = iota
	// KindNoAudio means the recording was complete silence.
	KindNoAudio
	// KindNoSpeech means there was audio but no detectable speech.
	KindNoSpeech
)

func (k Kind) String() string {
	switch k {
	case KindNoAudio:
		return "no_audio"
	case KindNoSpeech:
		return "no_speech"
	default:
		return "text"
	}
}

// Request describes one piece of media to transcribe.
type Request struct {
	MediaPath string
	// Video requests carry screen context; the backend is prompted to read
	// on-screen text and cursor position.
	Video bool
	// Terms is the glossary vocabulary the transcript must preserve verbatim.
	Terms []string
}

// Result is a finished transcription. Sentinel results carry no text.
type Result struct {
	Text     string
	Kind     Kind
	Attempts int
}

// Sentinel reports whether the backend confirmed the recording held no
// usable speech. Sentinel results complete the session without producing
// insertable text.
func (r Result) Sentinel() bool {
	return r.Kind != KindText
}

// Backend is a transcription provider. Transcribe returns the raw model
// output; classification and sentinel handling belong to the pipeline.
type Backend interface {
	Transcribe(ctx context.Context, req Request) (string, error)
	Name() string
}

// ErrEmptyTranscript marks a backend response with no usable content. It is
// never retried: the model answered, it just answered with nothing.
var ErrEmptyTranscript = errors.New("backend returned an empty transcript")

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// Pipeline drives a backend with retry. Transient failures (timeouts,
// connection errors, throttling, server errors) are retried up to
// MaxAttempts with exponential backoff; fatal failures return immediately.
type Pipeline struct {
	backend Backend
	cfg     Config

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPipeline(backend Backend, cfg Config) *Pipeline {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 8 * time.Second
	}
	return &Pipeline{backend: backend, cfg: cfg, sleep: sleepCtx}
}

// Run transcribes one request to completion. The returned Result records
// how many attempts were spent, sentinel outcomes included.
func (p *Pipeline) Run(ctx context.Context, sessionID string, req Request) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		raw, err := p.backend.Transcribe(ctx, req)
		if err == nil {
			text := strings.TrimSpace(raw)
			switch text {
			case NoAudio:
				return Result{Kind: KindNoAudio, Attempts: attempt}, nil
			case NoAudibleSpeech:
				return Result{Kind: KindNoSpeech, Attempts: attempt}, nil
			case "":
				return Result{Attempts: attempt}, ErrEmptyTranscript
			}
			return Result{Text: text, Kind: KindText, Attempts: attempt}, nil
		}

		class := Classify(err)
		lastErr = err

		if class == Fatal {
			log.Attempt(sessionID, attempt, "fatal", 0, err)
			return Result{Attempts: attempt}, err
		}
		if attempt == p.cfg.MaxAttempts {
			log.Attempt(sessionID, attempt, "transient", 0, err)
			break
		}

		delay := backoffDelay(attempt, p.cfg.BackoffBase, p.cfg.BackoffCap)
		log.Attempt(sessionID, attempt, "transient", delay, err)
		if err := p.sleep(ctx, delay); err != nil {
			return Result{Attempts: attempt}, err
		}
	}
	return Result{Attempts: p.cfg.MaxAttempts},
		fmt.Errorf("transcription failed after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

// backoffDelay doubles the base per prior attempt, capped.
func backoffDelay(attempt int, base, cap time.Duration) time.Duration {
	delay := base << (attempt - 1)
	if delay > cap || delay <= 0 {
		return cap
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
