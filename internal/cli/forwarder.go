package cli

import (
	"context"
	"fmt"
	"syslogfwd/internal/forwarder"
	"syslogfwd/internal/global"
	"syslogfwd/internal/lifecycle"
	"syslogfwd/internal/logctx"

	"github.com/spf13/pflag"
)

// Parses flags shared by run and check and loads the daemon configuration
func loadDaemonConfig(cliOpts *CommandSet, commandname string, args []string) (daemonConfig forwarder.Config, err error) {
	var configPath string
	commandFlags := pflag.NewFlagSet(commandname, pflag.ContinueOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, cliOpts)
	}
	err = commandFlags.Parse(args)
	if err != nil {
		return
	}

	fileCfg, err := forwarder.LoadConfig(configPath)
	if err != nil {
		return
	}

	daemonConfig, err = fileCfg.NewDaemonConf()
	return
}

// Runs the forwarder until a termination signal or listener failure
func RunMode(ctx context.Context, cliOpts *CommandSet, commandname string, args []string) (err error) {
	daemonConfig, err := loadDaemonConfig(cliOpts, commandname, args)
	if err != nil {
		return
	}
	logctx.SetLogLevel(ctx, global.Verbosity)

	fwdDaemon := forwarder.NewDaemon(daemonConfig)
	err = fwdDaemon.Start(ctx)
	if err != nil {
		return
	}

	signalCtx, stopSignals := context.WithCancel(ctx)
	defer stopSignals()
	go lifecycle.SignalHandler(signalCtx, fwdDaemon)

	notifyErr := lifecycle.NotifyReady(ctx)
	if notifyErr != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", notifyErr)
	}
	notifyErr = lifecycle.NotifyStatus(ctx, fmt.Sprintf("Forwarding %s on %s to %s", daemonConfig.Input.Type, fwdDaemon.Addr(), daemonConfig.OutputType))
	if notifyErr != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify status failed: %v\n", notifyErr)
	}

	err = fwdDaemon.Run()
	return
}

// Validates the configuration file without starting anything
func CheckMode(cliOpts *CommandSet, commandname string, args []string) (err error) {
	daemonConfig, err := loadDaemonConfig(cliOpts, commandname, args)
	if err != nil {
		return
	}

	fmt.Printf("Configuration OK: %s on %s -> %s (%d workers, queue %d)\n",
		daemonConfig.Input.Type, daemonConfig.Input.ListenAddr,
		daemonConfig.OutputType, daemonConfig.Workers, daemonConfig.QueueSize)
	return
}
