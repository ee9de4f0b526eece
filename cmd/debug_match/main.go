// Command debug_match matches landmarks against a saved screenshot and
// writes a copy of it with the matches outlined.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"jordanella.com/botty-go/internal/config"
	"jordanella.com/botty-go/internal/cv"
	"jordanella.com/botty-go/internal/logging"
	"jordanella.com/botty-go/internal/screen"
	"jordanella.com/botty-go/pkg/templates"
)

func main() {
	shot := flag.String("image", "", "Screenshot PNG of the game client area")
	names := flag.String("templates", "", "Comma separated landmark names")
	dir := flag.String("dir", "assets/templates", "Template directory")
	threshold := flag.Float64("threshold", 0, "Match threshold, 0 uses the landmark default")
	gray := flag.Bool("gray", false, "Match in grayscale")
	out := flag.String("out", "debug_match.png", "Output image")
	maxHits := flag.Int("max", 0, "Maximum hits outlined per landmark, 0 for all")
	flag.Parse()

	if *shot == "" || *names == "" {
		flag.Usage()
		os.Exit(2)
	}

	frame, err := cv.LoadImage(*shot)
	if err != nil {
		log.Fatal(err)
	}

	registry := templates.NewTemplateRegistry(*dir, logging.Discard())
	if err := registry.LoadFromDirectory(*dir); err != nil {
		log.Printf("No template definitions loaded: %v", err)
	}
	if _, err := registry.RegisterImages(*dir); err != nil {
		log.Fatal(err)
	}

	b := frame.Bounds()
	scale := float64(b.Dx()) / config.DefaultScreenWidth
	conv := screen.NewConverter(config.DefaultScreenWidth, config.DefaultScreenHeight, scale, b.Min)
	service := cv.NewService(&screen.StaticGrabber{Frame: frame, Conv: conv}, registry)

	var opts []cv.Option
	if *threshold > 0 {
		opts = append(opts, cv.WithThreshold(*threshold))
	}
	if *gray {
		opts = append(opts, cv.WithGrayscale(true))
	}

	var matches []cv.Match
	for _, name := range strings.Split(*names, ",") {
		name = strings.TrimSpace(name)
		hits, err := service.FindAllInFrame(frame, conv, name, *maxHits, opts...)
		if err != nil {
			fmt.Printf("%-24s error: %v\n", name, err)
			continue
		}
		if len(hits) == 0 {
			best, _, _ := service.FindTemplateInFrame(frame, conv, name, opts...)
			fmt.Printf("%-24s not found (best %.3f)\n", name, best.Score)
			continue
		}
		for _, m := range hits {
			fmt.Printf("%-24s %.3f at %v, abs %v\n", name, m.Score, m.Center, conv.ScreenToAbs(m.Center))
		}
		matches = append(matches, hits...)
	}

	if err := cv.SaveImage(*out, cv.DebugMatch(frame, matches...)); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %s\n", *out)
}
