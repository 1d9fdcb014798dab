// Command shard is the CLI and REPL front end for the shard virtual
// machine: an external collaborator to the core, consuming only
// pkg/vm's embedding API.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shard-lang/shard/pkg/stdlib"
	"github.com/shard-lang/shard/pkg/vm"
)

var flagDebug = flag.Bool("debug", false, "print the last error's stack trace on failure, and log each CALL dispatch")

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		for _, path := range args {
			if err := runFile(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		}
		return
	}

	runREPL()
}

func runFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	machine := vm.New()
	stdlib.Install(machine)
	machine.SetTrace(*flagDebug)

	if !machine.Eval(stripShebangLines(string(raw))) {
		msg := machine.GetError()
		if *flagDebug {
			msg = machine.DebugError()
		}
		return fmt.Errorf("%s: %s", path, msg)
	}
	return nil
}

// stripShebangLines drops every line beginning with "#!" — not just a
// leading one — matching the original interpreter loader's line-by-line
// skip rather than a single first-line check.
func stripShebangLines(source string) string {
	lines := strings.Split(source, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "#!") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func runREPL() {
	fmt.Println("shard — a concatenative, stack-oriented scripting language")
	fmt.Println("type :help for REPL commands, :quit to exit")

	machine := vm.New()
	stdlib.Install(machine)
	machine.SetTrace(*flagDebug)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("shard> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if handled := handleCommand(machine, line); handled {
			continue
		}

		if !machine.Eval(line) {
			fmt.Fprintln(os.Stderr, "error:", machine.GetError())
			continue
		}
		fmt.Println(machine.Stack().String())
	}
}

func handleCommand(machine *vm.VM, line string) bool {
	switch strings.TrimSpace(line) {
	case "":
		return true
	case ":help", ":h", ":?":
		printHelp()
		return true
	case ":quit", ":q", ":exit":
		fmt.Println("goodbye")
		os.Exit(0)
	case ":stack", ":s":
		fmt.Println(machine.Stack().String())
		return true
	case ":words", ":w":
		printWords(machine)
		return true
	}
	return false
}

func printHelp() {
	fmt.Print(`
REPL commands:
  :help, :h, :?    show this help
  :quit, :q        exit shard
  :stack, :s       print the current stack
  :words, :w       list defined words

Language basics:
  1 2 +            numbers and arithmetic
  'hello'          strings, with '' as an escape for a literal '
  true false       booleans
  { ... }          a block literal
  { 1 + } 'inc' def   install a word
  # a comment to end of line
`)
}

func printWords(machine *vm.VM) {
	words := machine.Dictionary().Words()
	fmt.Printf("%d words defined:\n", len(words))
	cols := 6
	for i, w := range words {
		fmt.Printf("%-12s", w)
		if (i+1)%cols == 0 {
			fmt.Println()
		}
	}
	if len(words)%cols != 0 {
		fmt.Println()
	}
}
