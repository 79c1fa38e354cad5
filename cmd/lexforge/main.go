// Command lexforge reads a project file's declarative grammar and emits
// a table-driven scanner as a C++ header/source pair.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/spf13/cobra"

	"github.com/lexforge/lexforge/codegen"
	"github.com/lexforge/lexforge/diag"
	"github.com/lexforge/lexforge/project"
)

var (
	outDir     string
	srcFile    string
	headerFile string
	verbosity  int
)

func main() {
	root := &cobra.Command{
		Use:           "lexforge <input_file>",
		Short:         "Lexer generator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	root.Flags().StringVar(&outDir, "dir", "", "output directory")
	root.Flags().StringVar(&srcFile, "src", "", "source file (output)")
	root.Flags().StringVar(&headerFile, "header", "", "header file (output)")
	root.Flags().CountVarP(&verbosity, "verbosity", "v", "increase output verbosity")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputFile string) error {
	setVerbosity(verbosity)

	dir := outDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}

	diag.Logf(diag.Verbosity(verbosity), diag.Detail, "Working directory %q", dir)
	diag.Logf(diag.Verbosity(verbosity), diag.Detail, "Reading %q...", inputFile)

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}

	projectName := filepath.Base(inputFile)
	projectName = projectName[:len(projectName)-len(filepath.Ext(projectName))]

	diag.Logf(diag.Verbosity(verbosity), diag.Phases, "Parsing project...")
	p, err := project.ParseFile(projectName, data)
	if err != nil {
		return err
	}

	cg := codegen.New()
	if err := cg.Parse(p); err != nil {
		return err
	}
	if err := p.CheckUsed(); err != nil {
		return err
	}

	diag.Logf(diag.Verbosity(verbosity), diag.Phases, "Building grammar...")
	sink := diag.GologgerSink{}
	logf := func(level int, format string, args ...any) {
		diag.Logf(diag.Verbosity(verbosity), diag.Verbosity(level), format, args...)
	}
	if err := p.Build(sink, logf); err != nil {
		return err
	}

	diag.Logf(diag.Verbosity(verbosity), diag.Phases, "Running codegen...")
	if err := cg.Build(p); err != nil {
		return err
	}

	src := srcFile
	if src == "" {
		src = projectName + ".jlex.cpp"
	}
	header := headerFile
	if header == "" {
		ext := filepath.Ext(src)
		header = src[:len(src)-len(ext)] + ".h"
	}

	headerPath := filepath.Join(dir, header)
	sourcePath := filepath.Join(dir, src)

	diag.Logf(diag.Verbosity(verbosity), diag.Detail, "Source file %q", sourcePath)
	diag.Logf(diag.Verbosity(verbosity), diag.Detail, "Header file %q", headerPath)

	diag.Logf(diag.Verbosity(verbosity), diag.Phases, "Writing header file...")
	headerText, err := cg.WriteHeader(filepath.Base(headerPath))
	if err != nil {
		return err
	}
	if err := writeFile(headerPath, headerText); err != nil {
		return err
	}

	diag.Logf(diag.Verbosity(verbosity), diag.Phases, "Writing source file...")
	sourceText, err := cg.WriteSource(filepath.Base(sourcePath))
	if err != nil {
		return err
	}
	if err := writeFile(sourcePath, sourceText); err != nil {
		return err
	}

	diag.Logf(diag.Verbosity(verbosity), diag.Phases, "Completed.")
	return nil
}

func writeFile(path, text string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func setVerbosity(v int) {
	switch {
	case v >= 1:
		// LevelVerbose admits both Verbose (phase) and Debug (detail)
		// messages; diag.Logf itself drops detail messages below -vv.
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	default:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelInfo)
	}
}
