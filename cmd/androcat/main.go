// androcat extracts and decodes AndroidManifest.xml and classes.dex from
// an APK, or decodes a bare AXML/DEX file given directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mimoja/andromeda"
)

type opts struct {
	isApk      bool
	isManifest bool
	isDex      bool

	manifestEntry string
	dexEntry      string
	indent        string
	faithful      bool
	dumpDex       bool
}

func main() {
	var o opts

	flag.BoolVar(&o.isApk, "a", false, "the input file is an apk (default if INPUT is *.apk)")
	flag.BoolVar(&o.isManifest, "m", false, "the input file is an AXML manifest (default)")
	flag.BoolVar(&o.isDex, "x", false, "the input file is a DEX file (default if INPUT is *.dex)")
	flag.StringVar(&o.manifestEntry, "f", "AndroidManifest.xml", "name of the manifest entry to decode inside an apk")
	flag.StringVar(&o.dexEntry, "dex", "classes.dex", "name of the DEX entry to decode inside an apk")
	flag.StringVar(&o.indent, "indent", "  ", "indent string for rendered XML")
	flag.BoolVar(&o.faithful, "faithful", false, "render attribute values by string-index lookup only, ignoring value_type")
	flag.BoolVar(&o.dumpDex, "dex-only", false, "for apk input, print the DEX table summary instead of the manifest")

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] INPUT\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	input := flag.Arg(0)
	if err := run(input, &o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(input string, o *opts) error {
	if !o.isApk && !o.isManifest && !o.isDex {
		switch {
		case strings.HasSuffix(input, ".apk"):
			o.isApk = true
		case strings.HasSuffix(input, ".dex"):
			o.isDex = true
		default:
			o.isManifest = true
		}
	}

	switch {
	case o.isApk:
		return runApk(input, o)
	case o.isDex:
		return runDex(input, o)
	default:
		return runManifest(input, o)
	}
}

func runApk(input string, o *opts) error {
	a, err := andromeda.OpenArchive(input)
	if err != nil {
		return err
	}
	defer a.Close()

	if o.dumpDex {
		summary, err := andromeda.ParseClassesDexFromArchive(a, o.dexEntry)
		if err != nil {
			return err
		}
		printDexSummary(summary)
		return nil
	}

	doc, err := andromeda.DecodeManifestFromArchive(a, o.manifestEntry)
	if err != nil {
		return err
	}
	return printRendered(doc, o)
}

func runManifest(input string, o *opts) error {
	data, err := andromeda.ReadFile(input)
	if err != nil {
		return err
	}
	doc, err := andromeda.DecodeAXML(data)
	if err != nil {
		return err
	}
	return printRendered(doc, o)
}

func runDex(input string, o *opts) error {
	data, err := andromeda.ReadFile(input)
	if err != nil {
		return err
	}
	summary, err := andromeda.ParseDex(data)
	if err != nil {
		return err
	}
	printDexSummary(summary)
	return nil
}

func printRendered(doc *andromeda.Document, o *opts) error {
	rn := andromeda.Renderer{Faithful: o.faithful, Indent: o.indent}
	out, err := rn.Render(doc)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func printDexSummary(s *andromeda.DexSummary) {
	fmt.Printf("dex version %s, endian=%v\n", s.Header.Version, s.Header.Endian)
	fmt.Printf("strings: %d\n", len(s.Strings))
	fmt.Printf("types: %d\n", len(s.Types))
	fmt.Printf("protos: %d\n", len(s.Protos))
	fmt.Printf("fields: %d\n", len(s.Fields))
	fmt.Printf("methods: %d\n", len(s.Methods))
	fmt.Printf("class defs: %d\n", len(s.ClassDefs))
}
