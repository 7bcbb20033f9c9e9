package config_test

import (
	"fmt"
	"log"

	"github.com/oneminimax/AsciiDataFile/pkg/config"
)

// ExampleNewBaseConfig demonstrates the defaults.
func ExampleNewBaseConfig() {
	cfg := config.NewBaseConfig("cooldown")

	fmt.Printf("Chunk Size: %d\n", cfg.Ingest.ChunkSize)
	fmt.Printf("Fill Value: %v\n", cfg.Ingest.FillValue)
	fmt.Printf("Output: %s\n", cfg.Output.Format)

	// Output:
	// Chunk Size: 10
	// Fill Value: NaN
	// Output: md
}

// ExampleBaseConfig_Validate shows validating a modified configuration.
func ExampleBaseConfig_Validate() {
	cfg := config.NewBaseConfig("field-sweep")
	cfg.Ingest.Format = "ppms-resistivity"
	cfg.Ingest.Sample = 2
	cfg.Output.Format = "parquet"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	fmt.Println("Configuration is valid!")

	cfg.Ingest.ChunkSize = 0
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid!
	// ingest.chunk_size must be positive
}
