// hookgate evaluates AI coding assistant tool calls against guard policy.
// Wire the `hookgate hook` subcommand as a pre-tool-use hook; the exit
// code carries the decision (0 allow, 2 block, 1 internal error).
package main

import "github.com/hookgate/hookgate/internal/cli"

func main() {
	cli.Execute()
}
