// Command btsniff decodes captured BitTorrent payloads into JSON lines.
//
//	btsniff [-config file] [-set "k=v;k=v"] [-format hex|raw] [-text] [file ...]
//
// Files ending in .zst are decompressed first; "-" or no file reads stdin.
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rawbytedev/btsniff"
	"github.com/rawbytedev/btsniff/internal/logging"
	"github.com/rawbytedev/btsniff/pkg/config"
	"github.com/rs/zerolog"
)

// maxPayload bounds one hex line.
const maxPayload = 1 << 20

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("btsniff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML configuration file")
	inline := fs.String("set", "", `inline settings, e.g. "protocols=dht,lsd;dedup=true"`)
	format := fs.String("format", "", "input format: hex (one payload per line) or raw (one payload per file)")
	text := fs.Bool("text", false, "write plain-text summaries instead of JSON")
	memprofile := fs.String("memprofile", "", "write a heap profile to this file on exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}
	if *format != "" {
		cfg.Input.Format = strings.ToLower(*format)
	}
	if err := cfg.ParseInline(*inline); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log := logging.New(stderr, "btsniff", cfg.LoggingConfig())

	if *memprofile != "" {
		runtime.MemProfileRate = 1
		defer writeHeapProfile(log, *memprofile)
	}

	s := &sniffer{
		engine: btsniff.NewEngine(cfg.EngineOptions()),
		out:    bufio.NewWriter(stdout),
		log:    log,
		format: cfg.Input.Format,
		text:   *text,
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	status := 0
	for _, name := range inputs {
		if err := s.file(name, stdin); err != nil {
			log.Error().Err(err).Str("file", name).Msg("input failed")
			status = 1
		}
	}
	if err := s.out.Flush(); err != nil {
		log.Error().Err(err).Msg("write output")
		status = 1
	}
	log.Info().Msg(s.engine.Stats().Summary())
	return status
}

type sniffer struct {
	engine *btsniff.Engine
	out    *bufio.Writer
	log    zerolog.Logger
	format string
	text   bool
}

func (s *sniffer) file(name string, stdin io.Reader) error {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	if s.format == config.FormatRaw {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return s.payload(name, 0, b)
	}
	return s.hexLines(name, r)
}

func (s *sniffer) hexLines(name string, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*maxPayload+2)
	var buf []byte
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		var err error
		buf, err = hex.AppendDecode(buf[:0], []byte(text))
		if err != nil {
			s.log.Warn().Str("file", name).Int("line", line).Err(err).Msg("skipping malformed hex")
			continue
		}
		if err := s.payload(name, line, buf); err != nil {
			return err
		}
	}
	return sc.Err()
}

// payload decodes one payload; only output errors are returned.
func (s *sniffer) payload(name string, line int, b []byte) error {
	res, err := s.engine.Process(b)
	switch {
	case errors.Is(err, btsniff.ErrNoMatch), errors.Is(err, btsniff.ErrEmptyPayload):
		s.log.Debug().Str("file", name).Int("line", line).Int("bytes", len(b)).Msg("no match")
		return nil
	case errors.Is(err, btsniff.ErrDuplicate):
		s.log.Debug().Str("file", name).Int("line", line).Msg("duplicate")
		return nil
	case err != nil:
		return err
	}
	if s.text {
		if _, err := fmt.Fprintf(s.out, "[%s]\n", res.Protocol); err != nil {
			return err
		}
		return res.Record.Fprint(s.out)
	}
	if _, err := s.out.Write(res.JSON); err != nil {
		return err
	}
	return s.out.WriteByte('\n')
}

func writeHeapProfile(log zerolog.Logger, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Msg("create memprofile")
		return
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error().Err(err).Msg("write memprofile")
	}
}
