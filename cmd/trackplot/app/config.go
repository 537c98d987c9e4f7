package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	Size          int
	StartTime     *time.Time
	EndTime       *time.Time
	TimeZone      *time.Location
	SiteMargin    float64 // nm around the track to include recovery locations
	Verbose       bool
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:     ImagePNG,
		Size:       1200,
		TimeZone:   time.Local,
		SiteMargin: 5,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return ParseConfig(flag.CommandLine, os.Args[1:])
}

// ParseConfig parses args into a Config using the given flag set.
func ParseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, startTime, endTime, timeZone string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 1, "Session ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.IntVar(&c.Size, "size", c.Size, "Size of the longest side of the plot area in pixels")
	fs.StringVar(&startTime, "start", "", "Plot records from this time (format YYYY-MM-DD HH:MM:SS)")
	fs.StringVar(&endTime, "end", "", "Plot records up to this time (format YYYY-MM-DD HH:MM:SS)")
	fs.StringVar(&timeZone, "tz", "", "Time zone for parsing and displaying times, e.g. Australia/Sydney")
	fs.Float64Var(&c.SiteMargin, "site-margin", c.SiteMargin, "Include recovery locations within this many nm of the track")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as the scale, legend and info bar")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	err := c.parseTimes(fs, timeZone, startTime, endTime)
	if err != nil {
		fs.Usage()
		return nil, err
	}

	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Size < 100 {
		err = fmt.Errorf("size must be at least 100 pixels, got %d", c.Size)
	} else if c.SiteMargin < 0 {
		err = errors.New("site margin must not be negative")
	} else if c.StartTime != nil && c.EndTime != nil && c.StartTime.After(*c.EndTime) {
		err = errors.New("start time is after end time")
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}

// parseTimes resolves the time zone and the optional time range flags.
func (c *Config) parseTimes(fs *flag.FlagSet, timeZone, startTime, endTime string) error {
	var err error
	if timeZone != "" {
		if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
			return fmt.Errorf("invalid time zone: %w", err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "start":
			c.StartTime, err = parseTime(startTime, c.TimeZone)
		case "end":
			c.EndTime, err = parseTime(endTime, c.TimeZone)
		}
	})
	return err
}

func parseTime(s string, loc *time.Location) (*time.Time, error) {
	t, err := time.ParseInLocation(time.DateTime, s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid time '%s': %w", s, err)
	}
	return &t, nil
}
