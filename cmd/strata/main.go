// Package main provides the strata CLI.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/strata-ml/strata/storage"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("strata %s\n", version)
			return
		case "inspect":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: strata inspect <model.stw>")
				os.Exit(2)
			}
			if err := inspect(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "strata: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("strata - layer graphs for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version              Show version")
	fmt.Println("  inspect <model.stw>  List the tensors stored in a model file")
}

func inspect(path string) error {
	f, err := storage.Open(path)
	if err != nil {
		return err
	}

	fmt.Printf("Model:   %s\n", f.Header.ModelID)
	if f.Header.Network != "" {
		fmt.Printf("Network: %s\n", f.Header.Network)
	}
	fmt.Printf("Created: %s\n\n", f.Header.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tShape\tElements")
	for _, name := range f.Names() {
		t, _ := f.Tensor(name)
		fmt.Fprintf(tw, "%s\t%s\t%d\n", name, t.Shape(), t.NumElements())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nTotal parameters: %d\n", f.CountParameters())
	return nil
}
