// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and dispatch for tradewatch.
package cli

import (
	"fmt"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdRegister
	CmdLogout
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Login / register inputs. Password is always prompted, never
	// accepted as a flag.
	Email string
	Name  string

	// Global flags
	JSON    bool
	NoColor bool

	// Remaining arguments after the command name.
	Rest []string
}

// Parse interprets os.Args[1:].
func Parse(raw []string) (Args, error) {
	args := Args{Command: CmdTUI}

	rest := make([]string, 0, len(raw))
	for _, a := range raw {
		switch a {
		case "--json":
			args.JSON = true
		case "--no-color":
			args.NoColor = true
		default:
			rest = append(rest, a)
		}
	}
	if len(rest) == 0 {
		return args, nil
	}

	cmd := rest[0]
	parser := NewArgParser(rest[1:])
	args.Rest = rest[1:]

	switch cmd {
	case "login":
		args.Command = CmdLogin
		args.Email = parser.FlagOrDefault("email", parser.Positional(0))
	case "register", "registro":
		args.Command = CmdRegister
		args.Name = parser.Flag("name")
		args.Email = parser.Flag("email")
	case "logout":
		args.Command = CmdLogout
	case "status":
		args.Command = CmdStatus
	case "config":
		args.Command = CmdConfig
	case "version", "--version", "-v":
		args.Command = CmdVersion
	case "help", "--help", "-h":
		args.Command = CmdHelp
	default:
		if strings.HasPrefix(cmd, "-") {
			return args, fmt.Errorf("unknown flag: %s", cmd)
		}
		return args, fmt.Errorf("unknown command: %s (try 'tradewatch help')", cmd)
	}
	return args, nil
}

// VersionString formats the build identity for the version command.
func VersionString() string {
	return fmt.Sprintf("tradewatch %s (%s, %s, %s/%s)",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// HelpText is printed by the help command and on parse errors.
func HelpText() string {
	return `tradewatch - acompanhamento de carteira no terminal

Usage:
  tradewatch                 Open the interactive interface
  tradewatch login [email]   Authenticate and persist the session
  tradewatch register        Create an account (prompts for details)
  tradewatch logout          Clear the stored session
  tradewatch status          Show session and backend status
  tradewatch config [show]   Show the effective configuration
  tradewatch config set <key> <value>
                             Change one setting and persist it
  tradewatch version         Show version information
  tradewatch help            Show this help

Flags:
  --json       Machine readable output where supported
  --no-color   Disable colored output

Environment:
  TRADEWATCH_API_URL             Backend base URL
  TRADEWATCH_CHECK_INTERVAL      Session check interval in seconds
  TRADEWATCH_EXPIRY_WARN_DAYS    Expiry warning threshold in days
  TRADEWATCH_THEME               dark, light or auto
`
}
