// Command vaultctl is a thin companion CLI for exercising the core
// locally: seed creation, derivation, and store inspection. It is not
// part of the core itself (spec.md §1 excludes CLI surfaces beyond what
// a developer needs to drive the core), and it carries no urfave/cli
// dependency — manual subcommand dispatch mirrors the shape of the
// teacher's cmd/toskey/main.go without its cli.App surface.
package main

import (
	"flag"
	"fmt"
	"os"
)

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"seed-new", "seed-new -db PATH -seedfile FILE -name NAME [-mnemonic PHRASE] [-words N]", runSeedNew},
		{"seed-list", "seed-list -db PATH -seedfile FILE", runSeedList},
		{"address-new", "address-new -db PATH -seedfile FILE -seed NAME -path PATH -enc ENC -genesis HEX", runAddressNew},
		{"address-list", "address-list -db PATH", runAddressList},
		{"history-list", "history-list -db PATH", runHistoryList},
		{"history-checksum", "history-checksum -db PATH", runHistoryChecksum},
		{"history-clear", "history-clear -db PATH -checksum HEX", runHistoryClear},
	}
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	name := os.Args[1]
	for _, c := range commands {
		if c.name == name {
			if err := c.run(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "vaultctl:", err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintf(os.Stderr, "vaultctl: unknown command %q\n", name)
	printUsage()
	os.Exit(2)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: vaultctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}
