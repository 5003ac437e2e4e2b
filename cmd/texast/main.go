package main

import (
	"fmt"
	"io"
	"os"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"

	"github.com/texast/go-texast"
)

const usage = `usage: texast [options] [input.tex]

Parses LaTeX source, optionally rewrites it, and prints it back. Reads from
stdin when no input file is given. Without options the output is the input,
byte for byte.

options:
  -d FILE  load macro and environment definitions from FILE (repeatable)
  -e       expand registered macros and environments
  -w       insert a space between a bare command and following letters
  -m       treat % inside math as literal text instead of a comment
  -o FILE  write output to FILE instead of stdout
  -h       show this help
`

type options struct {
	defs     []string
	output   string
	expand   bool
	fixSpace bool
	mathText bool
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	var opt options

	opts, optind, err := getopt.Getopts(args, "d:o:ewmh")
	if err != nil {
		return fail(err)
	}

	for _, o := range opts {
		switch o.Option {
		case 'd':
			opt.defs = append(opt.defs, o.Value)
		case 'o':
			opt.output = o.Value
		case 'e':
			opt.expand = true
		case 'w':
			opt.fixSpace = true
		case 'm':
			opt.mathText = true
		case 'h':
			fmt.Print(usage)
			return 0
		}
	}

	args = args[optind:]
	if len(args) > 1 {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	src, err := readInput(args)
	if err != nil {
		return fail(err)
	}

	tree, err := parseSource(src, opt)
	if err != nil {
		return fail(err)
	}

	if opt.expand || len(opt.defs) > 0 {
		dm := texast.NewDemacro()

		for _, path := range opt.defs {
			if err := loadDefinitions(dm, path, opt); err != nil {
				return fail(err)
			}
		}

		if opt.expand {
			tree, err = dm.Demacro(tree)
			if err != nil {
				return fail(err)
			}
		}
	}

	if opt.fixSpace {
		tree = texast.FixWhitespace(tree)
	}

	return writeOutput(opt.output, tree)
}

func readInput(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func parseSource(src string, opt options) (*texast.Node, error) {
	parser := texast.NewParser(src)
	parser.MathComments(!opt.mathText)

	return parser.Parse()
}

// loadDefinitions runs the expander over a definitions file so that its
// \newcommand and \newenvironment declarations accumulate in the engine's
// tables. The file's own content is discarded.
func loadDefinitions(dm *texast.Demacro, path string, opt options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tree, err := parseSource(string(data), opt)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if _, err := dm.Demacro(tree); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

func writeOutput(path string, tree *texast.Node) int {
	out := io.Writer(os.Stdout)

	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fail(err)
		}
		defer f.Close()

		out = f
	}

	if err := texast.Render(out, tree); err != nil {
		return fail(err)
	}

	return 0
}

func fail(err error) int {
	color.New(color.FgRed).Fprintf(os.Stderr, "texast: %v\n", err)
	return 1
}
