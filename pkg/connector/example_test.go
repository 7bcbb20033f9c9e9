package connector_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/oneminimax/AsciiDataFile/pkg/columnar"
	"github.com/oneminimax/AsciiDataFile/pkg/config"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/destinations"
	"github.com/oneminimax/AsciiDataFile/pkg/connector/registry"

	// Import the instrument formats to register them
	_ "github.com/oneminimax/AsciiDataFile/pkg/connector/sources/ascii"
)

// Example writes a field sweep as a column file and ingests it again
// through the registry.
func Example() {
	dir, err := os.MkdirTemp("", "connector-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	curve, err := columnar.New([]columnar.Field{
		columnar.ColumnField("Field", "Oe", []float64{-100, 0, 100}),
		columnar.ColumnField("Rxx", "ohm", []float64{10.1, 10.0, 10.1}),
	})
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.NewBaseConfig("example")
	cfg.Ingest.Format = "column"

	ctx := context.Background()
	dst, err := destinations.New("column", cfg)
	if err != nil {
		log.Fatal(err)
	}
	first, err := dst.Write(ctx, filepath.Join(dir, "sweep.txt"), curve)
	if err != nil {
		log.Fatal(err)
	}
	second, err := dst.Write(ctx, filepath.Join(dir, "sweep.txt"), curve)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(filepath.Base(first), filepath.Base(second))

	src, err := registry.CreateSource("column", cfg)
	if err != nil {
		log.Fatal(err)
	}
	back, err := src.Read(ctx, second)
	if err != nil {
		log.Fatal(err)
	}
	rxx, _ := back.Column("Rxx")
	fmt.Println(back.ColumnNames(), back.ColumnUnits())
	fmt.Println(rxx)

	// Output:
	// sweep.txt sweep_002.txt
	// [Field Rxx] [Oe ohm]
	// [10.1 10 10.1]
}

// Example_formatInfo lists the registered text destinations.
func Example_formatInfo() {
	for _, name := range []string{"ascii", "column", "md"} {
		info, err := registry.GetFormatInfo("destination", name)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(info.Name, info.Extensions)
	}

	// Output:
	// ascii [.txt]
	// column [.txt]
	// md [.txt]
}
