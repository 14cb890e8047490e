package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"credanchor.io/anchor/storage/archivecfg"
	"credanchor.io/anchor/storage/bundle"
)

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: credanchor bundle <export|import> ...")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var archiveSpec, outPath string
	fs.StringVar(&archiveSpec, "archive", "", "Source archive spec")
	fs.StringVar(&outPath, "out", "", "Bundle file to write ('-' for stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if archiveSpec == "" {
		fmt.Fprintln(errOut, "missing --archive")
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: credanchor bundle export --archive <spec> --out <bundle.tar> <cid> [<cid> ...]")
		return 2
	}

	ids := make([]cid.Cid, 0, fs.NArg())
	for _, s := range fs.Args() {
		id, err := cid.Decode(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid %q: %v\n", s, err)
			return 2
		}
		ids = append(ids, id)
	}

	archive, err := archivecfg.Open(archiveSpec)
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	defer archive.Close()

	var w io.Writer = out
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create bundle: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	if err := bundle.Export(w, archive.CAS, ids, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if outPath != "-" {
		fmt.Fprintf(out, "exported %d artifacts to %s\n", len(ids), outPath)
	}
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var archiveSpec string
	var ignoreUnknown bool
	fs.StringVar(&archiveSpec, "archive", "", "Destination archive spec")
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unknown bundle entries instead of failing")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if archiveSpec == "" {
		fmt.Fprintln(errOut, "missing --archive")
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: credanchor bundle import --archive <spec> <bundle.tar>")
		return 2
	}

	var r io.Reader
	if fs.Arg(0) == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "open bundle: %v\n", err)
			return 1
		}
		defer f.Close()
		r = f
	}

	archive, err := archivecfg.Open(archiveSpec)
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	defer archive.Close()

	if err := bundle.ImportWithOptions(r, archive.CAS, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown}); err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}
