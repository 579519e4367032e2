// Command gotpldump parses a template file (or stdin) and prints its AST.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/arvidnorberg/gotpl"
)

func main() {
	name := flag.String("name", "stdin", "template name when reading from stdin")
	left := flag.String("left", "", "left delimiter (default {{)")
	right := flag.String("right", "", "right delimiter (default }})")
	flag.Parse()

	var src string
	var tmplName string

	switch args := flag.Args(); len(args) {
	case 0:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		src, tmplName = string(b), *name
	case 1:
		b, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("read %s: %v", args[0], err)
		}
		src, tmplName = string(b), args[0]
	default:
		log.Fatalf("usage: gotpldump [-name NAME] [-left L] [-right R] [file]")
	}

	tmpl, err := gotpl.New(tmplName).Delims(*left, *right).Parse(src)
	if err != nil {
		log.Fatalf("parse failed: %v", err)
	}

	fmt.Print(tmpl.Dump())
}
