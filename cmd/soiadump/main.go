// Command soiadump is a small diagnostics tool over the records this
// module compiles in: it prints a record's reflective type descriptor and
// converts a payload between the dense JSON, readable JSON and binary
// formats. It follows the teacher's protoc-gen-go/main.go convention of a
// flag.FlagSet plus a thin dispatch function rather than a cobra/pflag
// command tree, since this tool has no subcommand-specific flag sets to
// justify one.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/soiago/soia/examplepb"
	"github.com/soiago/soia/soia"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "soiadump:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := examplepb.Register(); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: soiadump <describe|transform> ...")
	}

	switch args[0] {
	case "describe":
		return runDescribe(args[1:])
	case "transform":
		return runTransform(args[1:])
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runDescribe(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: soiadump describe <module_path>:<qualified_name>")
	}
	typeID := fs.Arg(0)

	j, err := soia.TypeDescriptorJSON(typeID)
	if err != nil {
		return err
	}
	out := soia.MarshalJSONValue(j, soia.Readable)
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func runTransform(args []string) error {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	typeID := fs.String("type", "", "record id, <module_path>:<qualified_name>")
	from := fs.String("from", "dense", "source format: dense, readable, or binary")
	to := fs.String("to", "readable", "destination format: dense, readable, or binary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *typeID == "" {
		return fmt.Errorf("soiadump transform: -type is required")
	}
	fromFmt, err := parseFormat(*from)
	if err != nil {
		return err
	}
	toFmt, err := parseFormat(*to)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	out, err := soia.Transform(*typeID, data, fromFmt, toFmt)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func parseFormat(s string) (soia.Format, error) {
	switch s {
	case "dense":
		return soia.FormatDenseJSON, nil
	case "readable":
		return soia.FormatReadableJSON, nil
	case "binary":
		return soia.FormatBinary, nil
	default:
		return 0, fmt.Errorf("unknown format %q (want dense, readable, or binary)", s)
	}
}
