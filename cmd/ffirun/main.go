package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/ffi-runtime/binder"
	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/header"
	"github.com/wippyai/ffi-runtime/marshal"
	"github.com/wippyai/ffi-runtime/reference"
)

func main() {
	var (
		libFile     = flag.String("lib", "", "Path or name of the shared library")
		headerFile  = flag.String("header", "", "C header declaring the bound surface")
		useRef      = flag.Bool("reference", false, "Bind the built-in reference surface")
		configFile  = flag.String("config", "", "YAML configuration file")
		list        = flag.Bool("list", false, "List bound functions and exit")
		funcName    = flag.String("func", "", "Function to call")
		argsStr     = flag.String("args", "", "Call arguments as a YAML sequence, e.g. '[1, {x: 2}, null]'")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Development logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lib":
			cfg.Library = *libFile
		case "header":
			cfg.Header = *headerFile
		case "reference":
			cfg.Reference = *useRef
		case "v":
			cfg.Verbose = *verbose
		}
	})

	if cfg.Library == "" || (cfg.Header == "" && !cfg.Reference) {
		fmt.Fprintln(os.Stderr, "Usage: ffirun -lib <library> (-header <file.h> | -reference) [-func name] [-args '[...]']")
		fmt.Fprintln(os.Stderr, "       ffirun -lib <library> -header <file.h> -list")
		fmt.Fprintln(os.Stderr, "       ffirun -lib <library> -reference -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       ffirun -config <file.yaml>")
		os.Exit(1)
	}

	log, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	binder.SetLogger(log.Named("binder"))
	marshal.SetLogger(log.Named("marshal"))

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	calls := cfg.Calls
	if *funcName != "" {
		args, err := parseArgs(*argsStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		calls = []CallConfig{{Func: *funcName, Args: args}}
	}

	if err := run(cfg, calls, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// session is a bound library.
type session struct {
	reg   *binder.Registry
	table *binder.Table
}

func openSession(cfg *Config) (*session, error) {
	d, err := loadDescriptor(cfg)
	if err != nil {
		return nil, err
	}
	reg := binder.NewRegistry(binder.Options{Lazy: cfg.Lazy, Global: cfg.Global})
	table, err := reg.Bind(cfg.Library, d)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("bind %s: %w", cfg.Library, err)
	}
	return &session{reg: reg, table: table}, nil
}

func (s *session) Close() error { return s.reg.Close() }

func loadDescriptor(cfg *Config) (*descriptor.Descriptor, error) {
	if cfg.Reference {
		return reference.Descriptor(), nil
	}
	src, err := os.ReadFile(cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	sems, err := cfg.pointerSemantics()
	if err != nil {
		return nil, err
	}
	var opts header.Options
	if sems != nil {
		opts.Semantics = header.SemanticsMap(sems)
	}
	if g := cfg.APIGuard; g != nil {
		opts.APIGuard = &descriptor.APIGuard{Func: g.Func, Hash: g.Hash}
	}
	d, err := header.Parse(string(src), opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfg.Header, err)
	}
	return d, nil
}

func run(cfg *Config, calls []CallConfig, listOnly bool) error {
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Library: %s\n", s.table.Path())
	fmt.Printf("Functions: %d\n", s.table.Len())
	fmt.Printf("API hash: %d\n", s.table.Descriptor().Hash())

	if listOnly || len(calls) == 0 {
		fmt.Printf("\nBound functions:\n")
		for _, f := range s.table.Funcs() {
			fmt.Printf("  %s\n", f.Signature())
		}
		return nil
	}

	for _, c := range calls {
		result, err := s.call(c.Func, c.Args)
		if err != nil {
			return fmt.Errorf("call %s: %w", c.Func, err)
		}
		fmt.Printf("%s(%s) = %s\n", c.Func, formatArgs(c.Args), result)
	}
	return nil
}

func (s *session) call(name string, raw []any) (string, error) {
	f, err := s.table.Func(name)
	if err != nil {
		return "", err
	}
	args, err := hostArgs(f.Function(), raw)
	if err != nil {
		return "", err
	}
	result, err := f.Call(args...)
	if err != nil {
		return "", err
	}
	if f.Function().Result().Kind() == descriptor.KindVoid {
		return "void", nil
	}
	return formatValue(result), nil
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}
