// Package compiler turns JASM source text into instructions and checks them
// without running them.
package compiler

import (
	"strings"

	"github.com/chazu/jasm/vm"
)

// Parse splits source into one instruction per line. The mnemonic is the
// text before the first space or tab and Args is everything after it.
// Surrounding whitespace and a trailing \r are dropped from each line. Blank
// lines and comments are kept so that instruction indexes line up with
// source lines.
//
// Parse never fails: an illegal mnemonic only fails when it is executed.
func Parse(source string) []vm.Instruction {
	lines := strings.Split(source, "\n")
	insts := make([]vm.Instruction, 0, len(lines))
	for n, line := range lines {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		mnemonic, args := splitLine(line)
		insts = append(insts, vm.Instruction{
			Mnemonic: mnemonic,
			Args:     strings.TrimSpace(args),
			Line:     n + 1,
		})
	}
	return insts
}

func splitLine(line string) (mnemonic, args string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i+1:]
}
