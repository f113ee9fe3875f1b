package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dmulholland/hexdump/dump"
)

// Byte budgets applied when the -n flag is omitted entirely and when
// it is supplied with no value. An explicit negative value, or the -a
// flag, reads to the end of the input.
const (
	defaultNumBytes = 256
	bareNumBytes    = 1024
)

type options struct {
	cols   int
	length int64
	offset offsetValue
	all    bool
	debug  bool
}

// offsetValue is a non-negative byte offset accepting decimal or
// 0x-prefixed hex.
type offsetValue int64

var _ pflag.Value = (*offsetValue)(nil)

func (o *offsetValue) Set(s string) error {
	base := 10
	v := s
	if len(v) > 2 && (v[:2] == "0x" || v[:2] == "0X") {
		base, v = 16, v[2:]
	}
	n, err := strconv.ParseInt(v, base, 64)
	if err != nil {
		return fmt.Errorf("invalid offset: %q", s)
	}
	if n < 0 {
		return fmt.Errorf("offset must be non-negative: %s", s)
	}
	*o = offsetValue(n)
	return nil
}

func (o *offsetValue) String() string { return strconv.FormatInt(int64(*o), 10) }

func (o *offsetValue) Type() string { return "offset" }

func newCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "hexdump [file]",
		Short: "Dump a file or standard input in hex and ASCII",
		Long: "Dump a file or standard input in hex and ASCII, one line per\n" +
			"chunk of bytes.\n" +
			"\n" +
			"With no file, or when file is -, read standard input. Reading\n" +
			"standard input at a non-zero offset fails: pipes cannot seek.\n" +
			"\n" +
			"Without -n the first " + strconv.Itoa(defaultNumBytes) + " bytes are dumped; a bare -n dumps\n" +
			"the first " + strconv.Itoa(bareNumBytes) + ". Note that a bare -n does not consume the next\n" +
			"argument, so an explicit count must be attached: -n=512.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&opts.cols, "line", "l", 16, "bytes per line")
	flags.Int64VarP(&opts.length, "number", "n", defaultNumBytes,
		"number of bytes to read (negative reads to end of input)")
	flags.Lookup("number").NoOptDefVal = strconv.Itoa(bareNumBytes)
	flags.BoolVarP(&opts.all, "all", "a", false, "read to end of input")
	flags.VarP(&opts.offset, "offset", "o",
		"byte offset to start reading at (decimal or 0x hex)")
	flags.BoolVar(&opts.debug, "debug", false, "log diagnostics to stderr")
	return cmd
}

func newLogger(debug bool) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

type countWriter struct {
	w io.Writer
	n int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

func run(cmd *cobra.Command, opts *options, args []string) error {
	if opts.cols <= 0 {
		return fmt.Errorf("bytes per line must be positive: %d", opts.cols)
	}
	log := newLogger(opts.debug)
	defer log.Sync()

	length := opts.length
	if opts.all {
		length = -1
	}

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	var src io.Reader
	if name == "-" {
		src = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	// Buffer writes unless output is a terminal, where each line
	// should appear as soon as it is formatted.
	out := cmd.OutOrStdout()
	var bw *bufio.Writer
	if f, ok := out.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		bw = bufio.NewWriterSize(f, 16*1024)
		out = bw
	}
	cw := &countWriter{w: out}

	cfg := dump.Config{Cols: opts.cols, Length: length, Offset: int64(opts.offset)}
	log.Debug("dumping",
		zap.String("source", name),
		zap.Int("cols", cfg.Cols),
		zap.Int64("length", cfg.Length),
		zap.Int64("offset", cfg.Offset))

	start := time.Now()
	err := dump.Dump(cw, src, cfg)
	if err == nil && bw != nil {
		err = bw.Flush()
	}
	if err != nil {
		return err
	}
	log.Debug("done",
		zap.Int64("bytes", cw.n),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		// Exit quietly when the consumer of our output goes away.
		if errors.Is(err, syscall.EPIPE) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
