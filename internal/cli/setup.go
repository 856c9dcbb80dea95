package cli

import (
	"fmt"
	"os"
	"runtime"
	"syslogfwd/internal/global"
	"syslogfwd/internal/install"

	"github.com/spf13/pflag"
)

// Setup/installation options
func SetupMode(cliOpts *CommandSet, commandname string, args []string) (err error) {
	var installDaemon bool
	var uninstallDaemon bool
	var printTemplate bool

	commandFlags := pflag.NewFlagSet(commandname, pflag.ContinueOnError)
	commandFlags.BoolVar(&installDaemon, "install", false, "Install/Upgrade the binary, template configuration and systemd service")
	commandFlags.BoolVar(&uninstallDaemon, "uninstall", false, "Remove the binary, configuration and systemd service")
	commandFlags.BoolVar(&printTemplate, "config-template", false, "Print a template configuration (TOML) to stdout")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, cliOpts)
	}
	err = commandFlags.Parse(args)
	if err != nil {
		return
	}

	switch {
	case printTemplate:
		err = install.WriteTemplateConfig(os.Stdout)
	case installDaemon:
		err = install.Run()
	case uninstallDaemon:
		err = install.Remove()
	default:
		PrintHelpMenu(commandFlags, commandname, cliOpts)
		err = fmt.Errorf("no setup action given")
	}
	return
}

// Prints version, with build details when verbose
func VersionMode(args []string) {
	verbose := false
	for _, arg := range args {
		if arg == "--verbosity" || arg == "-v" {
			verbose = true
		}
	}

	if !verbose {
		fmt.Println(global.ProgVersion)
		return
	}
	fmt.Printf("%s %s\n", global.ProgBaseName, global.ProgVersion)
	fmt.Printf("Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
}
