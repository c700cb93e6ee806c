package main

import "github.com/naka-gawa/repo-dashboard/cmd"

func main() {
	cmd.Execute()
}
