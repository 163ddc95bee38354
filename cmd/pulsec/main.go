package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pulse-go/packages/compiler"
	"pulse-go/packages/compiler/src/ir"
)

func usage() {
	fmt.Println(`pulsec - Pulse component compiler
Usage: pulsec <command> [args]

Commands:
  compile <unit.json> [outdir]   Compile one IR unit to its artifacts
  help                           Show help`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "help":
		usage()
	case "compile":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		outDir := "."
		if len(os.Args) >= 4 {
			outDir = os.Args[3]
		}
		if err := compile(os.Args[2], outDir); err != nil {
			fmt.Fprintf(os.Stderr, "compile error: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func compile(path, outDir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	unit, err := ir.DecodeUnit(f)
	if err != nil {
		return err
	}

	opts := compiler.CompileOptions{Render: true, Client: true}
	if !unit.Interactive {
		// A static unit also gets the fully resolved form.
		opts.Markup = true
	}

	artifacts, err := compiler.Compile(unit, opts)
	if err != nil {
		return err
	}

	base := unit.Name
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	write := func(suffix, content string) error {
		if content == "" {
			return nil
		}
		out := filepath.Join(outDir, base+suffix)
		if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
		return nil
	}

	if err := write(".html", artifacts.Markup); err != nil {
		return err
	}
	if err := write(".render.js", artifacts.Render); err != nil {
		return err
	}
	return write(".client.js", artifacts.Client)
}
