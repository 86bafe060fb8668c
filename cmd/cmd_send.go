package cmd

import (
	"context"
	"encoding/hex"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/rettier/zvt/tools"
	"github.com/rettier/zvt/transport"
	"github.com/rettier/zvt/zvt"
	log "github.com/sirupsen/logrus"
)

func cmdSend(argv []string, version string) {
	usage := `usage: send --hex=<bytes> [--addr=<addr>] [--serial=<port>] [--baud=<n>]
            [--timeout=<seconds>] [--metrics-addr=<addr>]
Options:
  -h --help             Show this screen.
  --hex=<bytes>         Command to send, hex encoded (e.g. 060000).
  --addr=<addr>         Terminal network address [default: 192.168.1.10:20007].
  --serial=<port>       Use a serial port instead of TCP (e.g. /dev/ttyUSB0).
  --baud=<n>            Serial baud rate [default: 9600].
  --timeout=<seconds>   Acknowledge timeout in seconds [default: 5].
  --metrics-addr=<addr> Start a prometheus server to expose metrics at this address.
`
	opts, err := docopt.ParseArgs(usage, argv[1:], version)
	if err != nil {
		log.Fatalf("error parsing arguments. err=%v", err)
	}

	command, err := hex.DecodeString(strings.ReplaceAll(tools.OptsStr(opts, "--hex"), " ", ""))
	if err != nil {
		log.Fatalf("error decoding --hex. err=%v", err)
	}

	if err := InitializeMetrics("zvt-send", tools.OptsStrOr(opts, "--metrics-addr", "")); err != nil {
		log.Fatalf("error initializing metrics. err=%v", err)
	}

	link, err := openLink(opts)
	if err != nil {
		log.Fatalf("error opening link. err=%v", err)
	}
	defer link.Close()

	o := zvt.NewOrchestrator(link)
	o.RegisterCodec(func(data []byte) zvt.ProcessData {
		// this command only drives the handshake; business packets are
		// logged, not interpreted
		log.Infof("unsolicited packet % X", data)
		return zvt.ProcessData{State: zvt.NotProcessed}
	})
	link.OnReceived(o.OnBytesReceived)

	result := o.SendCommand(context.Background(), command, tools.OptsSeconds(opts, "--timeout"))
	log.Infof("result: %v", result)

	if result != zvt.PositiveCompletionReceived {
		os.Exit(1)
	}
}

func openLink(opts docopt.Opts) (transport.Link, error) {
	if port := tools.OptsStrOr(opts, "--serial", ""); port != "" {
		return transport.OpenSerial(port, tools.OptsInt(opts, "--baud"))
	}
	return transport.DialTCP(tools.OptsStr(opts, "--addr"), zvt.DefaultAcknowledgeTimeout)
}
