package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/tinysoc/bootmon/internal/boot"
	"github.com/tinysoc/bootmon/internal/devices/flash"
	"github.com/tinysoc/bootmon/internal/machine"
	"github.com/tinysoc/bootmon/internal/monitor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bootmon: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Machine description YAML (default: built-in reference SoC)")
	romImage := flag.String("image", "", "Payload to seal and load into ROM as the resident image")
	flashImage := flag.String("flash-image", "", "Payload to seal and program into flash at the boot offset")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run the first-stage monitor over a simulated SoC with the\n")
		fmt.Fprintf(os.Stderr, "console attached to this terminal.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := machine.Default()
	if *configPath != "" {
		var err error
		cfg, err = machine.Load(*configPath)
		if err != nil {
			return err
		}
	}

	// Put stdin into raw mode if it's a terminal so bytes reach the monitor
	// unbuffered, and translate the monitor's LF line endings on the way out.
	var console io.Writer = os.Stdout
	if term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("enable raw mode: %w", err)
		}
		defer term.Restore(int(os.Stdin.Fd()), oldState)
		console = monitor.NewCRLFWriter(os.Stdout)
	}

	m, err := machine.New(cfg, console)
	if err != nil {
		return err
	}

	if *romImage != "" {
		payload, err := os.ReadFile(*romImage)
		if err != nil {
			return fmt.Errorf("read rom image: %w", err)
		}
		if err := m.SealedROM(payload); err != nil {
			return err
		}
		slog.Debug("Loaded ROM image", "bytes", len(payload))
	}

	if *flashImage != "" {
		payload, err := os.ReadFile(*flashImage)
		if err != nil {
			return fmt.Errorf("read flash image: %w", err)
		}
		if err := programFlash(m, payload); err != nil {
			return err
		}
	}

	booted := make(chan boot.Handoff, 1)
	mon, err := m.Monitor(func(h boot.Handoff) {
		select {
		case booted <- h:
		default:
		}
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pump stdin into the UART receive path. Ctrl-\ leaves the simulator.
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				cancel()
				return
			}
			for _, b := range buf[:n] {
				if b == 0x1c {
					cancel()
					return
				}
			}
			m.Feed(buf[:n])
		}
	}()

	go func() {
		<-m.ResetRequested()
		slog.Info("Processor reset requested")
		cancel()
	}()

	mon.Startup(ctx)
	select {
	case h := <-booted:
		slog.Info("Control transferred to booted image", "addr", fmt.Sprintf("%#x", h.Addr))
		return nil
	default:
	}

	if err := mon.Run(ctx); err != nil && err != context.Canceled && err != io.EOF {
		return err
	}
	select {
	case h := <-booted:
		slog.Info("Control transferred to booted image", "addr", fmt.Sprintf("%#x", h.Addr))
	default:
	}
	return nil
}

// programFlash seals payload and programs it page by page at the configured
// boot offset, with progress on stderr.
func programFlash(m *machine.Machine, payload []byte) error {
	nor := m.Flash()
	if nor == nil {
		return fmt.Errorf("machine has no flash configured")
	}
	img := boot.SealImage(payload)
	off := m.Config().Boot.FlashOffset
	if uint64(off)+uint64(len(img)) > uint64(nor.Size()) {
		return fmt.Errorf("image %d bytes does not fit flash at %#x", len(img), off)
	}

	bar := progressbar.DefaultBytes(int64(len(img)), "program flash")
	defer bar.Close()

	for len(img) > 0 {
		n := flash.PageSize
		if n > len(img) {
			n = len(img)
		}
		if err := nor.Program(off, img[:n]); err != nil {
			return fmt.Errorf("program flash at %#x: %w", off, err)
		}
		_ = bar.Add(n)
		off += uint32(n)
		img = img[n:]
	}
	return nil
}
