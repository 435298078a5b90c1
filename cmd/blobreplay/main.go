// Command blobreplay replays a log of per-frame blob detections through BlobTracker
// and prints lifecycle events (began, moved, ended) as CSV.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/LdDl/blob-tracker/mot"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	in       string
	config   string
	logLevel string
	drain    bool
	drainMax int
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	opts := options{}
	fs := flag.NewFlagSet("blobreplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "-", "Detections CSV file ('-' for stdin)")
	fs.StringVar(&opts.config, "config", "", "Tracker JSON config (defaults are used if empty)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.drain, "drain", false, "Append empty frames after the log until no blob is alive")
	fs.IntVar(&opts.drainMax, "drain-max", 10, "Max number of empty frames appended by -drain")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.drainMax < 0 {
		return opts, errors.Errorf("drain-max must be non-negative, got %d", opts.drainMax)
	}
	return opts, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, errors.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.logLevel, stderr)
	if err != nil {
		return err
	}

	cfg := &mot.TrackerConfig{}
	if opts.config != "" {
		cfg, err = mot.LoadTrackerConfig(opts.config)
		if err != nil {
			return err
		}
	}
	tracker, err := cfg.NewTracker()
	if err != nil {
		return err
	}
	tracker.SetLogger(logger.With("component", "tracker"))

	input := stdin
	if opts.in != "-" {
		file, err := os.Open(opts.in)
		if err != nil {
			return errors.Wrap(err, "Can't open detections file")
		}
		defer file.Close()
		input = file
	}
	frames, err := readFrames(input)
	if err != nil {
		return errors.Wrap(err, "Can't read detections")
	}
	logger.Info("replay started", "frames", len(frames))

	out := newEventWriter(stdout)
	if err := out.writeHeader(); err != nil {
		return err
	}
	tracker.ConnectBlobCallbacks(out.handle, out.handle, out.handle)
	defer tracker.DisconnectBlobCallbacks()

	next := 0
	for _, fr := range frames {
		out.frame = fr.number
		tracker.Update(fr.detections)
		logger.Debug("frame done", "frame", fr.number, "detections", len(fr.detections), "blobs", tracker.GetNumBlobs())
		next = fr.number + 1
	}
	if opts.drain {
		for i := 0; i < opts.drainMax && tracker.GetNumBlobs() > 0; i++ {
			out.frame = next
			tracker.Update(nil)
			next++
		}
	}

	if err := out.flush(); err != nil {
		return err
	}
	logger.Info("replay finished", "events", out.count, "blobs_alive", tracker.GetNumBlobs())
	return nil
}

// eventWriter prints events as CSV rows: frame;event;id;x;y;prev_x;prev_y
type eventWriter struct {
	writer *csv.Writer
	frame  int
	count  int
	err    error
}

func newEventWriter(w io.Writer) *eventWriter {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	return &eventWriter{writer: writer}
}

func (ew *eventWriter) writeHeader() error {
	return ew.writer.Write([]string{"frame", "event", "id", "x", "y", "prev_x", "prev_y"})
}

func (ew *eventWriter) handle(evt mot.BlobEvent) {
	if ew.err != nil {
		return
	}
	pos := evt.GetPos()
	prev := evt.GetPrevPos()
	ew.err = ew.writer.Write([]string{
		strconv.Itoa(ew.frame),
		evt.Kind().String(),
		strconv.Itoa(int(evt.GetID())),
		formatFloat(pos.X),
		formatFloat(pos.Y),
		formatFloat(prev.X),
		formatFloat(prev.Y),
	})
	ew.count++
}

func (ew *eventWriter) flush() error {
	if ew.err != nil {
		return errors.Wrap(ew.err, "Can't write event")
	}
	ew.writer.Flush()
	return errors.Wrap(ew.writer.Error(), "Can't flush events")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
