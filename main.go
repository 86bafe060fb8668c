package main

import (
	"os"

	"github.com/docopt/docopt-go"
	"github.com/rettier/zvt/cmd"
	"github.com/rettier/zvt/tools"
	log "github.com/sirupsen/logrus"
)

const version = "0.1.alpha"

func init() {
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func main() {
	usage := `usage: zvt [--version] [(--verbose|--quiet)] [--help]
           <command> [<args>...]
options:
   -h, --help
   --verbose      Change the logging level verbosity
The commands are:
   terminal       Run a scripted payment-terminal simulator
   send           Send a command to a terminal and await its acknowledge
See 'zvt <command> --help' for more information on a specific command.
`
	parser := &docopt.Parser{OptionsFirst: true}
	args, err := parser.ParseArgs(usage, nil, version)
	if err != nil {
		log.Errorf("error = %v", err)
		os.Exit(1)
	}

	command := args["<command>"].(string)
	cmdArgs := args["<args>"].([]string)

	log.Debugf("global arguments: %v", args)
	log.Debugf("command arguments: %v %v", command, cmdArgs)

	verbose := tools.OptsBool(args, "--verbose")
	quiet := tools.OptsBool(args, "--quiet")
	if verbose == true {
		log.SetLevel(log.DebugLevel)
	} else if quiet == true {
		log.SetLevel(log.WarnLevel)
	}

	cmd.RunCommand(command, cmdArgs, version)
}
