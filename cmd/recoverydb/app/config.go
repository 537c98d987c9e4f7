package app

import (
	"errors"
	"flag"
	"os"
)

type Config struct {
	DBPath      string
	PostgresDSN string
	InputFile   string
	List        bool
}

// NewConfigFromCLI parses the process command line.
func NewConfigFromCLI() (*Config, error) {
	return ParseConfig(flag.CommandLine, os.Args[1:])
}

// ParseConfig parses args into a Config using the given flag set.
func ParseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := &Config{}

	fs.StringVar(&c.DBPath, "db", "", "Path to the SQLite database file")
	fs.StringVar(&c.PostgresDSN, "postgres", "", "PostgreSQL connection string, used instead of -db")
	fs.StringVar(&c.InputFile, "i", "", "Path to the CSV file with recovery locations (ident,latitude,longitude[,elevation])")
	fs.BoolVar(&c.List, "list", false, "Print stored recovery locations after the import")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if c.DBPath == "" && c.PostgresDSN == "" {
		err = errors.New("either db path or postgres dsn is required")
	} else if c.DBPath != "" && c.PostgresDSN != "" {
		err = errors.New("db path and postgres dsn are mutually exclusive")
	} else if c.InputFile == "" && !c.List {
		err = errors.New("input file is required")
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	return c, nil
}
