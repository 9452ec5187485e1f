// Command normalise converts a reported national demand-profile CSV into the
// model's table convention: country-name headers become ISO alpha-3 codes,
// day-first timestamps become ISO order, and values are scaled from positive
// MW into the model's negative per-unit form.
//
// Usage:
//
//	go run ./cmd/normalise -in demand_2015.csv -out demand.csv -year 2019
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tarnmoor/hydro-inflow-etl/internal/demand"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	inPath := flag.String("in", "", "path to the reported demand CSV")
	outPath := flag.String("out", "", "path to write the normalised CSV")
	scale := flag.Float64("scale", demand.DefaultScale, "multiplier applied to every value")
	year := flag.Int("year", 0, "reindex timestamps into this year (0 keeps the source year)")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		flag.Usage()
		return errors.New("both -in and -out are required")
	}

	in, err := os.Open(*inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := demand.Normalize(in, out, demand.Options{Scale: *scale, Year: *year}); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log.Printf("normalised %s -> %s", *inPath, *outPath)
	return nil
}
