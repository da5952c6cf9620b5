// Command aioniser steps through configured cycles of shell actions, one
// step per invocation, remembering its position between runs.
package main

import "aioniser/internal/cli"

func main() {
	cli.Execute()
}
