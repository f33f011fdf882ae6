package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MartinDM/data-app/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		count       = flag.Int("count", 100, "number of people to generate")
		seed        = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation (0 = time based)")
		outputDir   = flag.String("output-dir", "data", "directory to write people.json")
		writeStdout = flag.Bool("stdout", false, "write the dataset to stdout instead of a file")
	)
	flag.Parse()

	cfg.Seed = *seed

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(cfg)
	people, err := gen.Generate(ctx, *count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(people); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	path, err := generator.WritePeople(people, *outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d people into %s\n", len(people), path)
}
