package guard

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// simpleCommand is one parsed command inside a (possibly compound) shell
// line: "A=1 git commit -m x" has assigns {A:1} and words [git commit -m x].
type simpleCommand struct {
	Words   []string
	Assigns map[string]string
}

// parseCommands splits a shell command line into its simple commands so
// guards match words, not substrings: `a && b`, pipes, and subshells each
// contribute their own command, and a quoted "--no-verify" inside a commit
// message is a single word, not a flag.
func parseCommands(cmd string) ([]simpleCommand, error) {
	parser := syntax.NewParser()
	file, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil, err
	}

	var cmds []simpleCommand
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok {
			return true
		}
		sc := simpleCommand{}
		for _, assign := range call.Assigns {
			if assign.Name == nil {
				continue
			}
			if sc.Assigns == nil {
				sc.Assigns = make(map[string]string)
			}
			sc.Assigns[assign.Name.Value] = wordText(cmd, assign.Value)
		}
		for _, w := range call.Args {
			sc.Words = append(sc.Words, wordText(cmd, w))
		}
		if len(sc.Words) > 0 || len(sc.Assigns) > 0 {
			cmds = append(cmds, sc)
		}
		return true
	})
	return cmds, nil
}

// wordText renders a word to its literal value where possible, falling back
// to the raw source text for dynamic parts (expansions, substitutions).
func wordText(src string, w *syntax.Word) string {
	if w == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		sb.WriteString(partText(src, part))
	}
	return sb.String()
}

func partText(src string, part syntax.WordPart) string {
	switch p := part.(type) {
	case *syntax.Lit:
		return p.Value
	case *syntax.SglQuoted:
		return p.Value
	case *syntax.DblQuoted:
		var sb strings.Builder
		for _, inner := range p.Parts {
			sb.WriteString(partText(src, inner))
		}
		return sb.String()
	default:
		return rawText(src, part)
	}
}

// rawText slices the original source by node offsets.
func rawText(src string, node syntax.Node) string {
	start := node.Pos().Offset()
	end := node.End().Offset()
	if start >= end || end > uint(len(src)) {
		return ""
	}
	return src[start:end]
}

// base returns the binary name of a command word: /usr/bin/git -> git.
func base(word string) string {
	word = strings.ToLower(word)
	if idx := strings.LastIndexByte(word, '/'); idx >= 0 {
		word = word[idx+1:]
	}
	return word
}

// hasFlag reports whether any word equals one of the given flags.
func hasFlag(words []string, flags ...string) bool {
	for _, w := range words {
		for _, f := range flags {
			if w == f {
				return true
			}
		}
	}
	return false
}

// subcommand returns the first non-flag word after the binary name.
func subcommand(words []string) string {
	for _, w := range words[1:] {
		if strings.HasPrefix(w, "-") {
			continue
		}
		return strings.ToLower(w)
	}
	return ""
}
