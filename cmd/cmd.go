package cmd

import (
	log "github.com/sirupsen/logrus"
)

func RunCommand(c string, args []string, version string) {
	argv := append([]string{c}, args...)
	switch c {
	case "terminal":
		cmdTerminal(argv, version)
	case "send":
		cmdSend(argv, version)
	default:
		log.Fatalf("%s is not a supported command. See 'zvt help'", c)
	}
}
