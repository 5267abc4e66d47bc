// Command toothnzoom is an interactive terminal viewer for intraoral
// radiographs: open a scan, drag the tone adjustments from the keyboard, and
// export what you see.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	toothnzoom "github.com/unioslo-odont/toothnzoom-edu"
	"github.com/unioslo-odont/toothnzoom-edu/adapters/storage"
	"github.com/unioslo-odont/toothnzoom-edu/adapters/vips"
	"github.com/unioslo-odont/toothnzoom-edu/analyze"
	"github.com/unioslo-odont/toothnzoom-edu/config"
	"github.com/unioslo-odont/toothnzoom-edu/core"
	"github.com/unioslo-odont/toothnzoom-edu/hooks"
	"github.com/unioslo-odont/toothnzoom-edu/render"
)

func usage() {
	fmt.Println("Commands available:")
	fmt.Println("  o <path>           - open a radiograph")
	fmt.Println("  f <url>            - fetch a radiograph over HTTP")
	fmt.Println("  b <n>              - set brightness [-100..100]")
	fmt.Println("  c <n>              - set contrast [-100..100]")
	fmt.Println("  e <x>              - set edge enhancement [0..10]")
	fmt.Println("  i                  - toggle inversion")
	fmt.Println("  r                  - reset adjustments")
	fmt.Println("  s <path>           - save the displayed image")
	fmt.Println("  p <path>           - save the histogram panel")
	fmt.Println("  t <dir>            - list film-strip thumbnails for a directory")
	fmt.Println("  l <course>         - file the open image into the case library")
	fmt.Println("  ld <course> <name> - load from the case library, restoring adjustments")
	fmt.Println("  ls <course>        - list a course in the case library")
	fmt.Println("  stats              - render statistics")
	fmt.Println("  u                  - check for updates")
	fmt.Println("  h                  - show this help message")
	fmt.Println("  q                  - quit")
}

// session holds what the viewer itself does not: the undecoded source bytes
// and a display name, so the open image can be filed into the library as-is.
type session struct {
	viewer *toothnzoom.Viewer
	lib    *storage.Library
	raw    []byte
	name   string
}

func main() {
	envFile := flag.String("env", "", "optional .env file with TNZ_* overrides")
	libDir := flag.String("library", filepath.Join(".", "library"), "case library directory")
	useVips := flag.Bool("vips", false, "decode through libvips")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("toothnzoom %s\n", Version)
		return
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.FromEnv(envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	v := toothnzoom.New(cfg)
	logger := hooks.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: hooks.ParseLevel(cfg.LogLevel),
	})))
	v.SetLogger(logger)

	if *useVips {
		backend := vips.NewBackend(vips.BackendConfig{})
		defer backend.Shutdown()
		vips.RegisterVipsBackend(v.Registry(), backend)
		v.Loader().SetThumbnailer(backend)
	}

	lib, err := storage.NewLibrary(*libDir, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "library: %v\n", err)
		os.Exit(1)
	}

	s := &session{viewer: v, lib: lib}
	ctx := context.Background()

	if path := flag.Arg(0); path != "" {
		if err := s.open(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", path, err)
			os.Exit(1)
		}
		s.show(ctx)
	}

	fmt.Println("toothnzoom - radiograph viewer")
	usage()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd, arg := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "o":
			s.run(s.open(ctx, arg))
			s.show(ctx)
		case "f":
			s.run(s.fetch(ctx, arg))
			s.show(ctx)
		case "b":
			if n, ok := parseInt(arg); ok {
				v.SetBrightness(n)
				s.show(ctx)
			}
		case "c":
			if n, ok := parseInt(arg); ok {
				v.SetContrast(n)
				s.show(ctx)
			}
		case "e":
			if x, ok := parseFloat(arg); ok {
				v.SetEdgeEnhancement(x)
				s.show(ctx)
			}
		case "i":
			v.ToggleInvert()
			s.show(ctx)
		case "r":
			v.Reset()
			s.show(ctx)
		case "s":
			s.run(s.save(ctx, arg))
		case "p":
			s.run(s.savePanel(ctx, arg, cfg))
		case "t":
			s.run(s.thumbnails(ctx, arg))
		case "l":
			s.run(s.fileIntoLibrary(ctx, arg))
		case "ld":
			s.run(s.loadFromLibrary(ctx, arg))
			s.show(ctx)
		case "ls":
			s.run(s.listLibrary(ctx, arg))
		case "stats":
			rendered, errCount := v.Stats()
			fmt.Printf("rendered=%d errors=%d\n", rendered, errCount)
		case "u":
			s.run(checkForUpdates(promptLine))
		case "h":
			usage()
		case "q":
			return
		default:
			fmt.Printf("unknown command %q\n", cmd)
			usage()
		}
	}
}

// run prints an error without aborting the session.
func (s *session) run(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

func (s *session) open(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: o <path>")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.install(ctx, raw, filepath.Base(path))
}

func (s *session) fetch(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("usage: f <url>")
	}
	raw, err := s.viewer.Loader().FetchRaw(ctx, url)
	if err != nil {
		return err
	}
	return s.install(ctx, raw, filepath.Base(url))
}

func (s *session) install(ctx context.Context, raw []byte, name string) error {
	buf, meta, err := s.viewer.DecodeBytes(ctx, raw)
	if err != nil {
		return err
	}
	s.viewer.LoadBuffer(buf, meta)
	s.raw = raw
	s.name = name
	fmt.Printf("loaded %s: %dx%d %s (%d bytes)\n", name, meta.Width, meta.Height, meta.Format, meta.SizeBytes)
	return nil
}

// show renders the current state and prints a one-line readout.
func (s *session) show(ctx context.Context) {
	frame, err := s.viewer.Render(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		return
	}
	st := analyze.Describe(&frame.Histogram)
	p := frame.Params
	inv := " "
	if p.Invert {
		inv = "i"
	}
	fmt.Printf("[%dx%d] b%+04d c%+04d e%4.1f %s | mean %5.1f  contrast %5.1f  entropy %4.2f  (%.1fms)\n",
		frame.Buffer.W, frame.Buffer.H,
		p.Brightness, p.Contrast, p.EdgeEnhancement, inv,
		st.Mean, st.Contrast, st.Entropy,
		float64(frame.Elapsed.Microseconds())/1000)
}

func (s *session) save(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: s <path>")
	}
	frame, err := s.viewer.Render(ctx)
	if err != nil {
		return err
	}
	if err := s.viewer.Export(ctx, frame.Buffer, formatForPath(path), 0, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func (s *session) savePanel(ctx context.Context, path string, cfg config.Config) error {
	if path == "" {
		return fmt.Errorf("usage: p <path>")
	}
	frame, err := s.viewer.Render(ctx)
	if err != nil {
		return err
	}
	if err := imaging.Save(render.Panel(frame, cfg.PanelWidth, cfg.PanelHeight), path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func (s *session) thumbnails(ctx context.Context, dir string) error {
	if dir == "" {
		dir = "."
	}
	thumbs, err := s.viewer.ScanThumbnails(ctx, dir)
	if err != nil {
		return err
	}
	if len(thumbs) == 0 {
		fmt.Println("no images found")
		return nil
	}
	for _, t := range thumbs {
		fmt.Printf("  %-40s %dx%d\n", filepath.Base(t.Path), t.Buffer.W, t.Buffer.H)
	}
	return nil
}

func (s *session) fileIntoLibrary(ctx context.Context, course string) error {
	if course == "" {
		return fmt.Errorf("usage: l <course>")
	}
	if len(s.raw) == 0 {
		return fmt.Errorf("no image open")
	}
	key := storage.Key{Course: course, Name: s.name}
	if err := s.lib.Put(ctx, key, bytes.NewReader(s.raw), s.viewer.Adjustments()); err != nil {
		return err
	}
	fmt.Printf("filed %s\n", key)
	return nil
}

func (s *session) loadFromLibrary(ctx context.Context, arg string) error {
	course, name := splitCommand(arg)
	if course == "" || name == "" {
		return fmt.Errorf("usage: ld <course> <name>")
	}
	key := storage.Key{Course: course, Name: name}
	rc, err := s.lib.Get(ctx, key)
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return err
	}
	if err := s.install(ctx, raw, name); err != nil {
		return err
	}
	adj, ok, err := s.lib.Adjustments(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		s.viewer.SetAdjustments(adj)
		fmt.Println("restored saved adjustments")
	}
	return nil
}

func (s *session) listLibrary(ctx context.Context, course string) error {
	if course == "" {
		return fmt.Errorf("usage: ls <course>")
	}
	keys, err := s.lib.List(ctx, course)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("empty course")
		return nil
	}
	for _, k := range keys {
		fmt.Printf("  %s\n", k)
	}
	return nil
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func splitCommand(line string) (cmd, rest string) {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}

func parseInt(arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "expected an integer, got %q\n", arg)
		return 0, false
	}
	return n, true
}

func parseFloat(arg string) (float64, bool) {
	x, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "expected a number, got %q\n", arg)
		return 0, false
	}
	return x, true
}

func formatForPath(path string) core.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return core.FormatJPEG
	case ".tif", ".tiff":
		return core.FormatTIFF
	default:
		return core.FormatPNG
	}
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
