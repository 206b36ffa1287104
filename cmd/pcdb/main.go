// pcdb is a small CLI over the postcode database: build a .pcod file
// from CSV, then look up, enumerate, or summarize it.
//
// Usage:
//
//	pcdb build <postcodes.csv> <out.pcod>
//	pcdb lookup <db.pcod> <postcode>
//	pcdb enumerate <db.pcod> <outward>
//	pcdb stats <db.pcod>
//
// LOG_LEVEL (debug|info|warn|error) and LOG_FORMAT (text|json) control
// logging, optionally loaded from a .env file.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	pcdb "github.com/robertpitt/postcode-db"
)

func setupLogger() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  pcdb build <postcodes.csv> <out.pcod>
  pcdb lookup <db.pcod> <postcode>
  pcdb enumerate <db.pcod> <outward>
  pcdb stats <db.pcod>
`)
	os.Exit(2)
}

func main() {
	_ = godotenv.Load(".env")
	logger := setupLogger()

	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "build":
		if len(os.Args) != 4 {
			usage()
		}
		err = pcdb.Build(os.Args[2], os.Args[3], pcdb.WithBuilderLogger(logger))
	case "lookup":
		if len(os.Args) != 4 {
			usage()
		}
		err = lookup(os.Args[2], os.Args[3])
	case "enumerate":
		if len(os.Args) != 4 {
			usage()
		}
		err = enumerate(os.Args[2], os.Args[3])
	case "stats":
		if len(os.Args) != 3 {
			usage()
		}
		err = stats(os.Args[2])
	default:
		usage()
	}
	if err != nil {
		logger.Error("command failed", "cmd", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func lookup(dbPath, code string) error {
	db, err := pcdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	res, ok := db.Lookup(code)
	if !ok {
		return fmt.Errorf("postcode %q not found", code)
	}
	fmt.Printf("%s\t%.5f\t%.5f\n", res.Postcode, res.Lat, res.Lon)
	return nil
}

func enumerate(dbPath, outward string) error {
	db, err := pcdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	for _, res := range db.EnumerateOutward(outward) {
		fmt.Printf("%s\t%.5f\t%.5f\n", res.Postcode, res.Lat, res.Lon)
	}
	return nil
}

func stats(dbPath string) error {
	db, err := pcdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	s := db.Stats()
	fmt.Printf("outwards:  %d\npostcodes: %d\nbytes:     %d\n",
		s.TotalOutwards, s.TotalPostcodes, s.FileSize)
	return nil
}
