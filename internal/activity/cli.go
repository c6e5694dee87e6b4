package activity

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/briangreenhill/pacer/internal/config"
	"github.com/briangreenhill/pacer/internal/location"
	"github.com/briangreenhill/pacer/internal/tracking"
	"github.com/tkrajina/gpxgo/gpx"
)

type CLI struct {
	writer          io.Writer
	cfg             config.Config
	activityService *Service
	args            []string
	logger          *slog.Logger
}

func NewCLI(w io.Writer, cfg config.Config, logger *slog.Logger, activityService *Service, args []string) *CLI {
	return &CLI{
		writer:          w,
		cfg:             cfg,
		activityService: activityService,
		args:            args,
		logger:          logger,
	}
}

func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		c.Usage()
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch args[0] {
	case "track":
		if err := c.Track(ctx); err != nil {
			return err
		}
	case "list":
		if err := c.List(ctx); err != nil {
			return err
		}
	case "frame":
		if err := c.Frame(ctx); err != nil {
			return err
		}
	case "api":
		if err := c.RunAPI(ctx); err != nil {
			return err
		}
	default:
		c.Usage()
	}
	return nil
}

func (c *CLI) Usage() {
	fmt.Fprintf(c.writer, "Usage: pacer [command] [flags]\n--help show this message\n\n"+
		"\ttrack --gpx FILE [--type run|bike|swim] [--name N] [--feeling F] [--city C] [--deny-location] [--deny-background]\n"+
		"\tlist\n"+
		"\tframe --id ID\n"+
		"\tapi\n")
}

func (c *CLI) RunAPI(ctx context.Context) error {
	mux := NewAPI(c.logger, c.activityService, c.cfg.Tracking.Framer(), c.cfg.UIDir, c.cfg.MapboxToken)

	server := &http.Server{
		Addr:    c.cfg.Addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		c.logger.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("Error shutting down server", slog.Any("error", err))
		}
	}()

	c.logger.Info("Starting server", slog.String("addr", c.cfg.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		c.logger.Error("Error starting server", slog.Any("error", err))
		return err
	}

	return nil
}

// Track replays a GPX recording through the live tracker as if it were
// being recorded now, then saves the session.
func (c *CLI) Track(ctx context.Context) error {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	var (
		gpxFile        string
		activityName   string
		activityType   string
		feeling        string
		city           string
		denyLocation   bool
		denyBackground bool
	)
	fs.StringVar(&gpxFile, "gpx", "", "path to gpx file")
	fs.StringVar(&activityType, "type", "run", "activity type: run, bike or swim")
	fs.StringVar(&activityName, "name", "", "session name")
	fs.StringVar(&feeling, "feeling", "", "how the session felt")
	fs.StringVar(&city, "city", "", "city the session started in")
	fs.BoolVar(&denyLocation, "deny-location", false, "simulate a denied location permission")
	fs.BoolVar(&denyBackground, "deny-background", false, "simulate a denied background location permission")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}

	if gpxFile == "" {
		fs.Usage()
		return nil
	}

	at, err := tracking.ParseActivityType(activityType)
	if err != nil {
		return err
	}

	c.logger.Info("Replaying gpx file", slog.String("gpx_file", gpxFile))

	gpxBytes, err := readGPXFile(gpxFile)
	if err != nil {
		return err
	}

	g, err := gpx.ParseBytes(gpxBytes)
	if err != nil {
		return err
	}

	clock := location.NewClock(time.Time{})
	replay, err := location.NewReplay(g, location.Permissions{
		DenyForeground: denyLocation,
		DenyBackground: denyBackground,
	}, clock, c.logger)
	if err != nil {
		return err
	}
	clock.Set(replay.StartTime())

	opts := []tracking.Option{tracking.WithClock(clock.Now)}
	if city != "" {
		opts = append(opts, tracking.WithGeocoder(StaticGeocoder(city)))
	}
	tracker := tracking.NewTracker(
		replay,
		NewWriterAnnouncer(c.writer, c.cfg.Tracking.UnitMeters),
		c.activityService,
		c.logger,
		c.cfg.Tracking.Engine(),
		opts...,
	)

	if activityName == "" {
		activityName = g.Name
	}

	tracker.Start(ctx, at)
	err = replay.Play(ctx, location.Hooks{
		SegmentEnd:   func() { tracker.Pause() },
		SegmentStart: func() { tracker.Resume(ctx) },
	})
	// An interrupted replay still saves what was tracked so far.
	res := tracker.Stop(context.WithoutCancel(ctx), tracking.Details{Name: activityName, Feeling: feeling})
	if err != nil {
		c.logger.Warn("Replay interrupted", slog.Any("error", err))
	}
	if res.SaveErr != nil {
		return res.SaveErr
	}

	rec := res.Record
	fmt.Fprintf(c.writer, "%s: %.2f km in %s, pace %s /km\n",
		rec.Name,
		rec.DistanceMeters/1000,
		formatDuration(rec.DurationSeconds),
		paceText(rec.PaceMinPerKm))

	return nil
}

func (c *CLI) List(ctx context.Context) error {
	activities, err := c.activityService.Get(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tDATE\tDISTANCE\tTIME\tPACE")
	for _, a := range activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f km\t%s\t%s\n",
			a.ID,
			a.Name,
			a.Type,
			a.StartedAt.Format("2006-01-02 15:04"),
			a.DistanceMeters/1000,
			formatDuration(a.DurationSeconds),
			paceText(a.PaceMinPerKm))
	}
	return tw.Flush()
}

func (c *CLI) Frame(ctx context.Context) error {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	var id string
	fs.StringVar(&id, "id", "", "session id")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}

	if id == "" {
		fs.Usage()
		return nil
	}

	frame, err := c.activityService.Frame(ctx, id, c.cfg.Tracking.Framer())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(frame)
}

func paceText(pace *float64) string {
	if pace == nil {
		return tracking.Pace{}.String()
	}
	return tracking.Pace{MinPerKm: *pace, Valid: true}.String()
}

func readGPXFile(gpxFile string) ([]byte, error) {
	info, err := os.Stat(gpxFile)
	if err != nil {
		return nil, fmt.Errorf("error reading gpx file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("gpx file is a directory")
	}

	file, err := os.Open(gpxFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return contents, nil
}
