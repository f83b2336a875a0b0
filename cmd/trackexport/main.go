// trackexport dumps the generated track for a seed, for plotting and for
// diffing generator changes against known seeds.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"driftline/internal/shared/logger"
	"driftline/internal/shared/types"
	"driftline/internal/simulation"
	"driftline/internal/track"
)

func main() {
	var (
		seed   int64
		format string
		out    string
	)
	flag.Int64Var(&seed, "seed", 42, "track seed")
	flag.StringVar(&format, "format", "json", "output format: json or csv")
	flag.StringVar(&out, "out", "-", "output path, '-' for stdout")
	flag.Parse()

	log := logger.New("trackexport")

	segs := track.Generate(seed)
	init := simulation.TrackWire(seed, segs)

	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			log.Fatalf("create %s: %v", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(init); err != nil {
			log.Fatalf("encode: %v", err)
		}
	case "csv":
		if err := writeCSV(w, init); err != nil {
			log.Fatalf("write csv: %v", err)
		}
	default:
		log.Fatalf("unknown format %q (want json or csv)", format)
	}

	if out != "-" {
		log.Printf("exported seed=%d theme=%s segments=%d format=%s to %s",
			seed, init.Theme, init.Count, format, out)
	}
}

func writeCSV(w io.Writer, init types.TrackInit) error {
	cw := csv.NewWriter(w)
	header := []string{
		"index", "x", "y", "z", "heading_deg", "width", "theme",
		"decoration_symbol", "decoration_offset", "decoration_size", "decoration_rotation_deg",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range init.Segments {
		row := []string{
			strconv.Itoa(p.Index),
			formatF(p.Center.X),
			formatF(p.Center.Y),
			formatF(p.Center.Z),
			formatF(p.HeadingDeg),
			formatF(init.Width),
			init.Theme,
			"", "", "", "",
		}
		if d := p.Decoration; d != nil {
			row[7] = d.Symbol
			row[8] = formatF(d.Offset)
			row[9] = formatF(d.Size)
			row[10] = formatF(d.RotationDeg)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatF(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
