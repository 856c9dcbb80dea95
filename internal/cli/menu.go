package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

const (
	RootCLICommand  string = "root"
	helpMenuTrailer string = `
Configuration values may reference the environment as $ENV{NAME:default}.
`
)

// Full standardized help menu (wraps option printer as well)
func PrintHelpMenu(fs *pflag.FlagSet, command string, rootCmd *CommandSet) {
	const baseIndentSpaces = 2

	curCmdSet := rootCmd
	isRoot := command == "" || command == RootCLICommand
	if !isRoot {
		cmd, ok := rootCmd.ChildCommands[command]
		if !ok {
			fmt.Printf("Unknown command: %s\n", command)
			return
		}
		curCmdSet = cmd
	}

	// Build full usage path
	usageParts := []string{os.Args[0]}
	if !isRoot {
		usageParts = append(usageParts, curCmdSet.CommandName)
	}
	if len(curCmdSet.ChildCommands) > 0 {
		usageParts = append(usageParts, "[subcommand]")
	}
	if fs != nil && fs.HasFlags() {
		usageParts = append(usageParts, "[options]")
	}
	if curCmdSet.UsageOption != "" {
		usageParts = append(usageParts, curCmdSet.UsageOption)
	}

	fmt.Printf("Usage: %s\n\n", strings.Join(usageParts, " "))

	// Description
	if isRoot {
		fmt.Println(curCmdSet.Description)
		fmt.Println(curCmdSet.FullDescription)
		fmt.Println()
	} else if curCmdSet.FullDescription != "" {
		fmt.Println("  Description:")
		fmt.Printf("    %s\n\n", curCmdSet.FullDescription)
	}

	// Subcommands
	if len(curCmdSet.ChildCommands) > 0 {
		indent := strings.Repeat(" ", baseIndentSpaces)
		fmt.Printf("%sSubcommands:\n", indent)

		// Compute max length for padding
		maxLen := 0
		subNames := make([]string, 0, len(curCmdSet.ChildCommands))
		for name := range curCmdSet.ChildCommands {
			maxLen = max(maxLen, len(name))
			subNames = append(subNames, name)
		}
		sort.Strings(subNames)

		cmdIndent := strings.Repeat(" ", baseIndentSpaces+2)
		for _, name := range subNames {
			sub := curCmdSet.ChildCommands[name]
			padding := strings.Repeat(" ", maxLen-len(name)+2)
			fmt.Printf("%s%s%s - %s\n", cmdIndent, name, padding, sub.Description)
		}
		fmt.Println()
	}

	// Flag
	if fs != nil {
		fmt.Print(formatFlagOptions(fs, baseIndentSpaces))
	}

	// Top-level trailer
	if isRoot {
		fmt.Print(helpMenuTrailer)
	}
}

// Aligned option list, short names first, long-only options indented to line up with the long names
func formatFlagOptions(fs *pflag.FlagSet, baseIndentSpaces int) (text string) {
	const argToUsageSpaces int = 2 // like "  -t, --test[  ]Some usage text"
	const shortColumn string = "    "

	type optInfo struct {
		left string
		desc string
	}

	var opts []optInfo
	maxLen := 0
	fs.VisitAll(func(arg *pflag.Flag) {
		left := shortColumn
		if arg.Shorthand != "" {
			left = "-" + arg.Shorthand + ", "
		}
		left += "--" + arg.Name

		// Skip printing any "empty" defaults
		desc := arg.Usage
		if arg.DefValue != "" && arg.DefValue != "false" && arg.DefValue != "0" {
			desc += fmt.Sprintf(" [default: %s]", arg.DefValue)
		}

		opts = append(opts, optInfo{left: left, desc: desc})
		maxLen = max(maxLen, len(left))
	})
	if len(opts) == 0 {
		return
	}

	var builder strings.Builder
	indent := strings.Repeat(" ", baseIndentSpaces)
	fmt.Fprintf(&builder, "%sOptions:\n", indent)
	for _, opt := range opts {
		padding := strings.Repeat(" ", maxLen-len(opt.left)+argToUsageSpaces)
		fmt.Fprintf(&builder, "%s%s%s%s\n", indent, opt.left, padding, opt.desc)
	}
	text = builder.String()
	return
}
