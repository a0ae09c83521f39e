package main

import "github.com/gridsense-data/phase.report/internal/cmd"

func main() {
	cmd.Execute()
}
