package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "build":
		return runBuild(args[1:], stdin, stdout, stderr)
	case "reprice":
		return runReprice(args[1:], stdin, stdout, stderr)
	case "query":
		return runQuery(args[1:], stdin, stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: curvebuild <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build    Bootstrap every curve of a snapshot and print the nodes")
	fmt.Fprintln(w, "  reprice  Bootstrap and print each instrument's quote, implied quote and error")
	fmt.Fprintln(w, "  query    Bootstrap and print discount factors and zero rates on given dates")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every command reads a YAML market snapshot from -input or stdin.")
	fmt.Fprintln(w, "Run `curvebuild <command> -h` for command-specific help.")
}
