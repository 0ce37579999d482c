/*
Copyright © 2026 SIMPLYADIL
*/
package main

import "github.com/simplyadil/QueryIQ/cmd"

func main() {
	cmd.Execute()
}
