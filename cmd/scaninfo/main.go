// Package main provides a command-line utility to summarize ScanImage
// recordings. It prints the scan geometry and, optionally, statistics of a
// selection of pixels.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/floats"

	"github.com/ecobost/scanreader"
	"github.com/ecobost/scanreader/internal/config"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML config file")
	join := flag.Bool("join", false, "Join contiguous ROI fields (overrides config)")
	key := flag.String("read", "", `Comma-separated key to read, e.g. "1,:,:,1,1:10"`)
	showHeader := flag.Bool("header", false, "Print the raw ScanImage header")
	flag.Parse()

	patterns := flag.Args()
	if len(patterns) < 1 {
		fmt.Println("Usage: scaninfo [flags] <file.tif|pattern>...")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *join {
		cfg.Scan.JoinContiguous = true
	}

	logger, closeLog, err := cfg.Logger()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer func() {
		if err := closeLog(); err != nil {
			log.Printf("Failed to close log: %v", err)
		}
	}()

	paths, err := scanreader.Glob(patterns...)
	if err != nil {
		log.Fatalf("Failed to find files: %v", err)
	}

	scan, err := scanreader.Open(paths,
		scanreader.WithJoinContiguous(cfg.Scan.JoinContiguous),
		scanreader.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to open scan: %v", err)
	}
	defer func() {
		if err := scan.Close(); err != nil {
			log.Printf("Failed to close scan: %v", err)
		}
	}()

	if err := summarize(os.Stdout, scan); err != nil {
		log.Fatalf("Failed to summarize scan: %v", err)
	}
	if *showHeader {
		fmt.Println(scan.Header())
	}
	if *key != "" {
		if err := readStats(os.Stdout, scan, parseKey(*key)); err != nil {
			log.Fatalf("Failed to read %q: %v", *key, err)
		}
	}
}

func summarize(w io.Writer, scan *scanreader.Scan) error {
	var total uint64
	for _, name := range scan.Filenames() {
		fi, err := os.Stat(name)
		if err != nil {
			return err
		}
		total += uint64(fi.Size()) //nolint:gosec // file sizes are non-negative
		fmt.Fprintf(w, "%-40s %10s\n", name, humanize.Bytes(uint64(fi.Size()))) //nolint:gosec // file sizes are non-negative
	}
	fmt.Fprintf(w, "%d files, %s\n\n", len(scan.Filenames()), humanize.Bytes(total))

	frames, err := scan.NumFrames()
	if err != nil {
		return err
	}
	kind := "uniform"
	if scan.IsMultiROI() {
		kind = fmt.Sprintf("multi-ROI (%d rois)", scan.NumRois())
	}
	fmt.Fprintf(w, "ScanImage %d, %s, bidirectional: %t\n", scan.Version(), kind, scan.IsBidirectional())
	fmt.Fprintf(w, "Page: %dx%d, channels: %d, depths: %v\n", scan.PageHeight(), scan.PageWidth(), scan.NumChannels(), scan.ScanningDepths())
	fmt.Fprintf(w, "Frames: %s at %.3f fps\n\n", humanize.Comma(int64(frames)), scan.FPS())

	depths, heights, widths, rois := scan.FieldDepths(), scan.FieldHeights(), scan.FieldWidths(), scan.FieldRois()
	fmt.Fprintf(w, "%5s %8s %10s %s\n", "field", "depth", "size", "rois")
	for i := 0; i < scan.NumFields(); i++ {
		fmt.Fprintf(w, "%5d %8g %10s %v\n", i+1, depths[i], fmt.Sprintf("%dx%d", heights[i], widths[i]), rois[i])
	}
	return nil
}

// parseKey splits a comma-separated key. Integers become scalar indices and
// everything else is passed on as a range string.
func parseKey(s string) []any {
	var key []any
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if n, err := strconv.Atoi(part); err == nil {
			key = append(key, n)
			continue
		}
		key = append(key, part)
	}
	return key
}

func readStats(w io.Writer, scan *scanreader.Scan, key []any) error {
	arr, err := scan.Read(key...)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nRead %v: shape %v, %s pixels\n", key, arr.Shape, humanize.Comma(int64(arr.Len())))
	if arr.Len() == 0 {
		return nil
	}
	values := make([]float64, arr.Len())
	for i, v := range arr.Data {
		values[i] = float64(v)
	}
	fmt.Fprintf(w, "min %g, max %g, mean %.3f\n",
		floats.Min(values), floats.Max(values), floats.Sum(values)/float64(len(values)))
	return nil
}
