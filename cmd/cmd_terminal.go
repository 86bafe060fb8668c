package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/rettier/zvt/terminal"
	log "github.com/sirupsen/logrus"
)

type terminalConfig struct {
	ListenAddr  string `docopt:"--listen-addr"`
	Script      string `docopt:"--script"`
	MetricsAddr string `docopt:"--metrics-addr"`
}

func cmdTerminal(argv []string, version string) {
	usage := `usage: terminal [--listen-addr=<addr>] [--script=<file>] [--metrics-addr=<addr>]
Options:
  -h --help             Show this screen.
  --listen-addr=<addr>  Listen on address:port [default: 0.0.0.0:20007].
  --script=<file>       YAML response script; without one every command is acked positively.
  --metrics-addr=<addr> Start a prometheus server to expose metrics at this address.
`
	opts, err := docopt.ParseArgs(usage, argv[1:], version)
	if err != nil {
		log.Fatalf("error parsing arguments. err=%v", err)
	}

	var c terminalConfig
	if err := opts.Bind(&c); err != nil {
		log.Fatalf("error in opts.bind. err=%v", err)
	}

	if err := InitializeMetrics("zvt-terminal", c.MetricsAddr); err != nil {
		log.Fatalf("error initializing metrics. err=%v", err)
	}

	script := terminal.DefaultScript()
	if c.Script != "" {
		script, err = terminal.LoadScript(c.Script)
		if err != nil {
			log.Fatalf("error loading script. err=%v", err)
		}
	}

	srv := terminal.NewServer(c.ListenAddr, script)
	go func() {
		if err := srv.Listen(); err != nil {
			log.Errorf("terminal server listen err=%v", err)
		}
	}()
	log.Infof("terminal simulator listening on %v", srv.Addr())

	waitForShutdown(srv)
}

// waitForShutdown waits for a terminate or interrupt signal and
// terminates the server once a signal is received.
func waitForShutdown(srv *terminal.Server) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	log.Infof("Shutdown signal received")
	srv.Shutdown()
}
