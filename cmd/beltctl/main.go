package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "beltctl",
		Usage: "inspect addresses, witnesses and ledger data; build and submit belt ledger transactions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "ledger-url",
				Usage:   "ledger backend base URL (overrides LEDGER_BASE_URL)",
				EnvVars: []string{"BELTCTL_LEDGER_URL"},
			},
			&cli.StringFlag{
				Name:  "bridge-url",
				Usage: "wallet bridge base URL (overrides WALLET_BRIDGE_URL)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "debug logging on stderr",
			},
		},
		Commands: []*cli.Command{
			addressCommand(),
			witnessCommand(),
			resolveCommand(),
			listCommand(),
			interactionCommand(),
			submitCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "beltctl: %v\n", err)
		os.Exit(1)
	}
}
