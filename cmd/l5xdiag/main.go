// l5xdiag generates a Mermaid state diagram from an RSLogix L5X export.
//
// Usage:
//
//	l5xdiag [flags] <input.L5X>
//
// The diagram is written as a markdown document next to the input file
// unless -o is given.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plc-diagram/backend/internal/diagram"
	"github.com/plc-diagram/backend/internal/extract"
)

var Version = "dev"

func main() {
	var (
		output            = flag.String("o", "", "output markdown path (default <input>_state_diagram.md)")
		tag               = flag.String("t", "", "state tag name (default auto-detect)")
		grammar           = flag.String("g", "flowchart", "diagram grammar: flowchart or state")
		profilePath       = flag.String("profile", "", "YAML extraction profile path")
		allowDefaultNames = flag.Bool("allow-default-names", false, "use numeric state names when no state tag resolves")
		showVersion       = flag.Bool("version", false, "print version and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <input.L5X>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("l5xdiag %s\n", Version)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	g, err := diagram.ParseGrammar(*grammar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	profile := extract.DefaultProfile()
	if *profilePath != "" {
		profile, err = extract.LoadProfile(*profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(input)
	}

	result, err := extract.Generate(extract.Options{
		InputPath:         input,
		OutputPath:        outPath,
		TagName:           *tag,
		Grammar:           g,
		Profile:           profile,
		AllowDefaultNames: *allowDefaultNames,
		Progress: func(msg string) {
			fmt.Println(msg)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", extract.ErrorCode(err), err)
		os.Exit(1)
	}

	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	fmt.Printf("Done: %d states, %d transitions -> %s\n",
		len(result.States), result.TransitionCount, outPath)
}

// defaultOutputPath derives <input>_state_diagram.md from the input path.
func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_state_diagram.md"
}
