package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/swelljoe/sunnybloom/internal/app"
	"github.com/swelljoe/sunnybloom/internal/config"
	"github.com/swelljoe/sunnybloom/internal/logging"
	"github.com/swelljoe/sunnybloom/internal/prayer"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fs := flag.NewFlagSet("prayertimes", flag.ContinueOnError)
	lat := fs.Float64("lat", 0, "latitude (omit to geolocate)")
	lon := fs.Float64("lon", 0, "longitude (omit to geolocate)")
	dateStr := fs.String("date", "", "date as YYYY-MM-DD (default today)")
	methodCode := fs.Int("method", cfg.CalculationMethod, "calculation method code")
	locale := fs.String("locale", cfg.Locale, "label locale (id, ms, en)")
	tz := fs.String("tz", cfg.Timezone, "IANA zone the times are reported in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.CalculationMethod = *methodCode

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("invalid -tz %q: %w", *tz, err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	date := time.Now().In(loc)
	if *dateStr != "" {
		date, err = time.ParseInLocation("2006-01-02", *dateStr, loc)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", *dateStr, err)
		}
	}

	var locator prayer.Locator = a.IPLocator
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["lat"] || set["lon"] {
		locator = prayer.StaticLocator(prayer.Coordinates{Latitude: *lat, Longitude: *lon})
	}

	ctx := context.Background()
	coords := a.Locations.Resolve(ctx, locator)
	res := a.Resolver.Resolve(ctx, coords, date, a.Method)

	printResolution(out, coords, date, res, *locale)
	return nil
}

func printResolution(out io.Writer, coords prayer.Coordinates, date time.Time, res prayer.Resolution, locale string) {
	fmt.Fprintf(out, "%s  (%.4f, %.4f)\n", date.Format("Mon 02 Jan 2006"), coords.Latitude, coords.Longitude)
	if res.Empty() {
		fmt.Fprintln(out, "No prayer times available.")
		return
	}
	for _, e := range prayer.Format(res.Times, locale) {
		mark := " "
		if e.Highlight {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-8s %s\n", mark, e.Label, e.Value)
	}
	fmt.Fprintf(out, "source: %s\n", res.Source)
}
