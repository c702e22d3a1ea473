package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/getprotean/protean/internal/config"
	"github.com/getprotean/protean/internal/manifest"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorDim   = "\033[2m"
)

// useColor is true when stdout is a real terminal.
var useColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(color, s string) string {
	if !useColor {
		return s
	}
	return color + s + colorReset
}

func usage() {
	fmt.Fprintf(os.Stderr, `protean - protocol manifest tool

Usage:
  protean check [manifest.yaml]   validate a protocol manifest
  protean show  [manifest.yaml]   print the declared protocols

When no path is given, %s is searched for in the current
directory and its parents.
`, config.ManifestFileName)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "check":
		m, path := loadManifest(os.Args[2:])
		fmt.Printf("%s %s: %d protocol(s)\n", paint(colorGreen, "ok"), path, len(m.Protocols))
	case "show":
		m, _ := loadManifest(os.Args[2:])
		printManifest(m)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

// loadManifest resolves the manifest path from args (or by searching
// upward from the working directory) and parses it, exiting on failure.
func loadManifest(args []string) (*manifest.Manifest, string) {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		found, err := manifest.Find(".", config.ManifestFileName)
		if err != nil {
			fail(err)
		}
		if found == "" {
			fail(fmt.Errorf("no %s found in the current directory or any parent", config.ManifestFileName))
		}
		path = found
	}
	m, err := manifest.Load(path)
	if err != nil {
		fail(err)
	}
	return m, path
}

func printManifest(m *manifest.Manifest) {
	for _, p := range m.Protocols {
		fmt.Printf("%s\n", paint(colorCyan, p.Name))
		if p.Capability != "" {
			fmt.Printf("  %s %s\n", paint(colorDim, "capability"), p.Capability)
		}
		for _, op := range p.Operations {
			line := fmt.Sprintf("  %s/%v", op.Name, op.Arities)
			if op.Method != "" {
				line += paint(colorDim, " -> "+op.Method)
			}
			fmt.Println(line)
		}
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", paint(colorRed, "error:"), err)
	os.Exit(1)
}
