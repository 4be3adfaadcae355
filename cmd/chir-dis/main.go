// Command chir-dis disassembles a CHIR container file into a human-readable
// .chirtxt listing. It reads its input with internal/chir.Deserialize and
// writes the result with internal/chir.Dump; it builds no live IR node
// types, since a text dump only needs each pool entry's kind tag and raw
// payload size.
//
// Grounded on the teacher's manual os.Args-switch CLI
// (_examples/funvibe-funxy/pkg/cli/entry.go): no flag-parsing library, a
// leading loop over os.Args classifying -h/-v/unrecognized flags before
// falling through to the positional file argument.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jade-lang/jadec/internal/chir"
	"github.com/jade-lang/jadec/internal/config"
)

const usage = `usage: chir-dis [options] <file>

options:
  -h, --help     show this message and exit
  -v, --version  print version and exit
`

// Exit codes per spec.md's documented CLI contract: 0 success, 1 user
// error (bad args, missing/unreadable file, unwritable output directory),
// 2 internal error (a malformed or unreadable container).
const (
	exitOK        = 0
	exitUserError = 1
	exitInternal  = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var inputPath string
	for _, a := range args {
		switch a {
		case "-h", "--help":
			fmt.Print(usage)
			return exitOK
		case "-v", "--version":
			fmt.Println("chir-dis", config.Version)
			return exitOK
		default:
			if strings.HasPrefix(a, "-") {
				fmt.Fprintf(os.Stderr, "chir-dis: unrecognized option %q\n\n%s", a, usage)
				return exitUserError
			}
			if inputPath != "" {
				fmt.Fprintf(os.Stderr, "chir-dis: too many arguments\n\n%s", usage)
				return exitUserError
			}
			inputPath = a
		}
	}
	if inputPath == "" {
		fmt.Fprint(os.Stderr, usage)
		return exitUserError
	}

	f, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chir-dis: %v\n", err)
		return exitUserError
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chir-dis: %v\n", err)
		return exitUserError
	}

	outPath := outputPath(inputPath)
	if err := checkDirWritable(filepath.Dir(outPath)); err != nil {
		fmt.Fprintf(os.Stderr, "chir-dis: %v\n", err)
		return exitUserError
	}

	module, err := chir.Deserialize(f, info.Size(), chir.PoolBuilders{
		BuildType:          func(k chir.Kind, payload []byte) any { return rawShell{k, payload} },
		BuildValue:         func(k chir.Kind, payload []byte) any { return rawShell{k, payload} },
		BuildExpr:          func(k chir.Kind, payload []byte) any { return rawShell{k, payload} },
		BuildCustomTypeDef: func(k chir.Kind, payload []byte) any { return rawShell{k, payload} },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chir-dis: %v\n", err)
		return exitInternal
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chir-dis: %v\n", err)
		return exitUserError
	}
	defer out.Close()

	if err := chir.Dump(out, module); err != nil {
		fmt.Fprintf(os.Stderr, "chir-dis: writing %s: %v\n", outPath, err)
		return exitInternal
	}

	fmt.Println(outPath)
	return exitOK
}

// rawShell is a no-op pool node: chir-dis never calls Module.Get* (Dump
// reads kinds/payloads directly), but Deserialize still requires a non-nil
// build callback per pool.
type rawShell struct {
	kind    chir.Kind
	payload []byte
}

// outputPath derives <basename>.chirtxt in the current directory, per
// spec.md's documented output location (not alongside the input file).
func outputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ".chirtxt"
}

// checkDirWritable reports whether dir (the output's parent directory,
// ordinarily ".") can be written to, before chir.Deserialize does any work,
// so a read-only CWD is reported as a user error rather than surfacing only
// after a successful disassembly.
func checkDirWritable(dir string) error {
	probe, err := os.CreateTemp(dir, ".chir-dis-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
