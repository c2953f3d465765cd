// Command radarcore runs the tracking core against a replayed or live
// detection stream, writing filtered track records to stdout and
// optionally to a SQLite trajectory store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yeltrix/radartrack/internal/config"
	"github.com/yeltrix/radartrack/internal/model"
	"github.com/yeltrix/radartrack/internal/pipeline"
	"github.com/yeltrix/radartrack/internal/replaysource"
	"github.com/yeltrix/radartrack/internal/serialsource"
	"github.com/yeltrix/radartrack/internal/sink"
	"github.com/yeltrix/radartrack/internal/trackstore"
	"github.com/yeltrix/radartrack/internal/units"
	"github.com/yeltrix/radartrack/internal/version"
)

var (
	configPath   = flag.String("config", "", "path to a tuning config JSON file (optional)")
	serialPort   = flag.String("serial", "", "serial port device to read live detections from (e.g. /dev/ttyUSB0)")
	replayPath   = flag.String("replay", "", "path to a JSON file containing an array of detections to replay")
	sqlitePath   = flag.String("sqlite", "", "path to a SQLite database to persist filtered records (optional)")
	maxTracks    = flag.Int("max-tracks", 0, "override initial_track_pool (0 keeps the config/default value)")
	speedUnit    = flag.String("speed-unit", units.MPS, "display unit for track speed on stdout: mps, mph, kmph, kph")
	printVersion = flag.Bool("version", false, "print the build version and exit")
)

func main() {
	flag.Parse()

	if *printVersion {
		fmt.Printf("radarcore %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *serialPort == "" && *replayPath == "" {
		log.Fatal("radarcore: one of -serial or -replay is required")
	}
	if !units.IsValid(*speedUnit) {
		log.Fatalf("radarcore: invalid -speed-unit %q (want one of %v)", *speedUnit, units.Valid)
	}

	tuning := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("radarcore: loading config: %v", err)
		}
		tuning = loaded
	}
	resolved := tuning.Resolve()
	if *maxTracks > 0 {
		resolved.InitialTrackPool = *maxTracks
	}

	source, closeSource, err := openSource()
	if err != nil {
		log.Fatalf("radarcore: opening detection source: %v", err)
	}
	defer closeSource()

	out, closeSink, err := openSinks()
	if err != nil {
		log.Fatalf("radarcore: opening sinks: %v", err)
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core := pipeline.New(resolved.FilterConfig, resolved.MaxTimeDiff, resolved.InitialTrackPool)
	if err := run(ctx, core, source, out); err != nil {
		log.Fatalf("radarcore: %v", err)
	}
}

// streamItem carries one result off the detection source: either a
// parsed detection, an error (a malformed record is skipped, any other
// error ends the run), or end of stream.
type streamItem struct {
	d   model.Detection
	err error
	eof bool
}

// streamDetections reads source in its own goroutine and forwards each
// result over a buffered channel, decoupling source I/O (which may
// block on a live serial read) from the core loop below -- the same
// shape as the teacher's forwardPacketAsync, except detections are
// never dropped on a full buffer: the send blocks instead, since
// unlike packet forwarding for monitoring, losing a detection here
// would silently corrupt tracking. core and its Filter/TrackManager
// stay owned by the single goroutine draining this channel.
func streamDetections(ctx context.Context, source model.DetectionSource) <-chan streamItem {
	ch := make(chan streamItem, 64)
	go func() {
		defer close(ch)
		for {
			d, ok, err := source.Next()
			var item streamItem
			switch {
			case err != nil:
				item = streamItem{err: err}
			case !ok:
				item = streamItem{eof: true}
			default:
				item = streamItem{d: d}
			}

			select {
			case ch <- item:
			case <-ctx.Done():
				return
			}
			if item.eof {
				return
			}
		}
	}()
	return ch
}

func run(ctx context.Context, core *pipeline.Core, source model.DetectionSource, out sink.Sink) error {
	items := streamDetections(ctx, source)
	for {
		select {
		case <-ctx.Done():
			return flushFinal(core, out)

		case item, chanOK := <-items:
			if !chanOK || item.eof {
				return flushFinal(core, out)
			}
			if item.err != nil {
				if !errors.Is(item.err, serialsource.ErrMalformedInput) {
					return fmt.Errorf("source: %w", item.err)
				}
				log.Printf("radarcore: skipping malformed detection: %v", item.err)
				continue
			}

			rec, emitted, err := core.Feed(item.d)
			if err != nil {
				return fmt.Errorf("feed: %w", err)
			}
			if emitted {
				if err := out.Write(rec); err != nil {
					log.Printf("radarcore: sink write failed: %v", err)
				}
			}
		}
	}
}

func flushFinal(core *pipeline.Core, out sink.Sink) error {
	rec, emitted, err := core.Flush()
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if emitted {
		if err := out.Write(rec); err != nil {
			log.Printf("radarcore: sink write failed: %v", err)
		}
	}
	return nil
}

func openSource() (model.DetectionSource, func(), error) {
	if *serialPort != "" {
		src, err := serialsource.Open(*serialPort, 115200)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	}

	data, err := os.ReadFile(*replayPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading replay file: %w", err)
	}
	var detections []model.Detection
	if err := json.Unmarshal(data, &detections); err != nil {
		return nil, nil, fmt.Errorf("parsing replay file: %w", err)
	}
	return replaysource.New(detections), func() {}, nil
}

func openSinks() (sink.Sink, func(), error) {
	stdout := sink.NewStdout(os.Stdout)
	stdout.SpeedUnit = *speedUnit
	if *sqlitePath == "" {
		return stdout, func() {}, nil
	}

	store, err := trackstore.Open(*sqlitePath)
	if err != nil {
		return nil, nil, err
	}
	return sink.Multi{stdout, store}, func() { store.Close() }, nil
}
