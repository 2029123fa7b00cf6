package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitInvalidArgs      = 2
	ExitWatchDirInvalid  = 3
	ExitNoFile           = 4
	ExitStorageError     = 5
	ExitUnitsFailed      = 6
	ExitValidationFailed = 7
	ExitLedgerError      = 8
	ExitCancelled        = 9
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		return runBatch(cmdArgs)
	case "await":
		return runAwait(cmdArgs)
	case "place":
		return runPlace(cmdArgs)
	case "purge":
		return runPurge(cmdArgs)
	case "list":
		return runList(cmdArgs)
	case "validate":
		return runValidate(cmdArgs)
	case "restore":
		return runRestore(cmdArgs)
	case "delete":
		return runDelete(cmdArgs)
	case "history":
		return runHistory(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: acquire <command> [options]

Commands:
  run       Trigger, detect and relocate one file per unit into a run folder
  await     Wait for one stable file in a directory and print its path
  place     Move a file into a directory without overwriting
  purge     Delete stale matching files from a watch directory
  list      List archived runs in a bucket
  validate  Verify an archived run against its manifest
  restore   Download the files of an archived run
  delete    Remove an archived run from storage
  history   Show runs recorded in the ledger

Run 'acquire <command> -h' for command-specific help.`)
}
