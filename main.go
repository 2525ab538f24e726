// SPDX-License-Identifier: MPL-2.0

// Command cliboot starts an interactive shell built from discovered plugins.
package main

import cmd "github.com/cliboot/cliboot/cmd/cliboot"

func main() {
	cmd.Execute()
}
