package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/synapsehq/synapse/internal/synapse"
)

func main() {
	command := synapse.NewSynapseCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
