package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ykdojo/osh/beep"
	"github.com/ykdojo/osh/capture"
	"github.com/ykdojo/osh/clipboard"
	"github.com/ykdojo/osh/config"
	"github.com/ykdojo/osh/glossary"
	"github.com/ykdojo/osh/hotkey"
	"github.com/ykdojo/osh/log"
	"github.com/ykdojo/osh/metrics"
	"github.com/ykdojo/osh/session"
	"github.com/ykdojo/osh/shutdown"
	"github.com/ykdojo/osh/transcriber"
)

var version = "dev"

func main() {
	run()
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "osh")
}

// pasteSink copies the transcript to the clipboard and optionally sends the
// paste chord, restoring the previous clipboard contents afterwards.
type pasteSink struct {
	autoPaste bool
}

func (s pasteSink) Insert(text string) error {
	if !s.autoPaste {
		if err := clipboard.Copy(text); err != nil {
			return fmt.Errorf("copy transcript: %w", err)
		}
		return nil
	}

	prev, prevErr := clipboard.Read()
	if err := clipboard.Type(text); err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	if prevErr == nil && prev != "" {
		// Give the focused app a moment to consume the paste before the
		// old clipboard comes back.
		go func(old string) {
			time.Sleep(500 * time.Millisecond)
			clipboard.Copy(old)
		}(prev)
	}
	return nil
}

func mapAction(a hotkey.Action) session.Command {
	switch a {
	case hotkey.ToggleScreen:
		return session.CmdToggleScreen
	case hotkey.ManualStop:
		return session.CmdManualStop
	default:
		return session.CmdToggleAudio
	}
}

func stateCue(s session.State) {
	switch s {
	case session.Recording:
		beep.Play(beep.CueStart)
	case session.Stopping:
		beep.Play(beep.CueStop)
	case session.Failed:
		beep.Play(beep.CueError)
	}
}

func printDevices(sup *capture.Supervisor) int {
	devices, err := sup.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
		return 1
	}
	printIndexed := func(title string, m map[int]string) {
		fmt.Println(title)
		idxs := make([]int, 0, len(m))
		for idx := range m {
			idxs = append(idxs, idx)
		}
		sort.Ints(idxs)
		if len(idxs) == 0 {
			fmt.Println("  (none)")
		}
		for _, idx := range idxs {
			fmt.Printf("  [%d] %s\n", idx, m[idx])
		}
	}
	printIndexed("Audio devices:", devices.Audio)
	printIndexed("Screens:", devices.Screens)
	return 0
}

func run() {
	configFlag := flag.String("config", filepath.Join(defaultConfigDir(), "config.yaml"), "Config file path")
	listFlag := flag.Bool("list", false, "List capture devices and exit")
	autoPasteFlag := flag.Bool("autopaste", true, "Auto-paste to focused window after transcription")
	noBeepFlag := flag.Bool("nobeep", false, "Disable audible recording cues")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("osh %s\n", version)
		os.Exit(0)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sup := capture.NewSupervisor(capture.Config{
		FFmpegPath:  cfg.Capture.FFmpegPath,
		InputFormat: cfg.Capture.InputFormat,
		AudioDevice: cfg.Capture.AudioDevice,
		ScreenIndex: cfg.Capture.ScreenIndex,
		SampleRate:  cfg.Capture.SampleRate,
		Framerate:   cfg.Capture.Framerate,
		Resolution:  cfg.Capture.Resolution,
		StopGrace:   cfg.Capture.StopGrace.Std(),
		OutputDir:   cfg.Capture.OutputDir,
	})

	if *listFlag {
		os.Exit(printDevices(sup))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer log.Close()

	if *noBeepFlag {
		beep.Disable()
	}

	backend, err := transcriber.NewGemini(cfg.Transcription.Model, cfg.Transcription.Timeout.Std())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	pipe := transcriber.NewPipeline(backend, transcriber.Config{
		MaxAttempts: cfg.Transcription.MaxAttempts,
		BackoffBase: cfg.Transcription.BackoffBase.Std(),
		BackoffCap:  cfg.Transcription.BackoffCap.Std(),
	})

	glossaryPath := cfg.Transcription.GlossaryPath
	if glossaryPath == "" {
		glossaryPath = filepath.Join(defaultConfigDir(), "common_words.txt")
	}
	gloss, err := glossary.Open(glossaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: glossary unavailable: %v\n", err)
		gloss = &glossary.Glossary{}
	} else if err := gloss.Watch(); err != nil {
		log.Warnf("glossary: live reload unavailable: %v", err)
	}
	defer gloss.Close()

	csvPath := cfg.Metrics.CSVPath
	if csvPath == "" {
		csvPath = filepath.Join(defaultConfigDir(), "typing_metrics.csv")
	}
	recorder := metrics.NewRecorder(csvPath)

	if err := clipboard.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: paste unavailable, falling back to clipboard only: %v\n", err)
		*autoPasteFlag = false
	}
	autoPaste := *autoPasteFlag && cfg.AutoPaste

	machine := session.NewMachine(session.Deps{
		Supervisor: session.CaptureSupervisor{Supervisor: sup},
		Pipeline:   pipe,
		Metrics:    recorder,
		Sink:       pasteSink{autoPaste: autoPaste},
		Glossary:   gloss,
	}, session.Options{
		MaxDuration: cfg.Capture.MaxDuration.Std(),
		Notify: func(msg string) {
			fmt.Println(msg)
		},
		OnState: stateCue,
	})

	bindings, err := parseBindings(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	listener := hotkey.NewListener(hotkey.NewSource(), bindings, hotkey.Options{
		Debounce:         cfg.Hotkeys.Debounce.Std(),
		WatchdogInterval: cfg.Hotkeys.WatchdogInterval.Std(),
		OnStatus: func(scope hotkey.Scope, reason string) {
			if scope == hotkey.ScopeDegraded {
				fmt.Fprintf(os.Stderr, "Warning: hotkeys degraded: %s\n", reason)
			}
		},
	})
	if err := listener.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to register hotkeys: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()

	log.SessionStart(backend.Name(), cfg.Transcription.Model)
	fmt.Printf("osh %s ready: %s audio, %s screen, %s stop\n",
		version, cfg.Hotkeys.ToggleAudio, cfg.Hotkeys.ToggleScreen, cfg.Hotkeys.ManualStop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		machine.Run(ctx)
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case action := <-listener.Actions():
				machine.Command(mapAction(action))
			}
		}
	})

	g.Go(func() error {
		sigs := make(chan os.Signal, 2)
		shutdown.Notify(sigs)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sigs:
				// First interrupt while recording finishes the take; any
				// other interrupt shuts the process down.
				if machine.State() == session.Recording {
					machine.Command(session.CmdInterrupt)
					continue
				}
				cancel()
				return nil
			}
		}
	})

	g.Wait()
	if n := machine.CompletedCount(); n > 0 {
		log.SessionEnd(n)
	}
}

func parseBindings(cfg *config.Config) ([]hotkey.Binding, error) {
	specs := []struct {
		chord  string
		action hotkey.Action
	}{
		{cfg.Hotkeys.ToggleAudio, hotkey.ToggleAudio},
		{cfg.Hotkeys.ToggleScreen, hotkey.ToggleScreen},
		{cfg.Hotkeys.ManualStop, hotkey.ManualStop},
	}
	bindings := make([]hotkey.Binding, 0, len(specs))
	for _, spec := range specs {
		chord, err := hotkey.ParseChord(spec.chord)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, hotkey.Binding{Chord: chord, Action: spec.action})
	}
	return bindings, nil
}
