// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/valleymod/valleymod/cmd/valleymod"

func main() {
	cmd.Execute()
}
