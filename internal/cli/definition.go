package cli

type CommandSet struct {
	CommandName     string                 // Exact name of cli command
	UsageOption     string                 // Expected command value in usage top line
	Description     string                 // Short text displayed on parent command
	FullDescription string                 // Long text displayed on current command
	ChildCommands   map[string]*CommandSet // Available subcommands
}

func DefineOptions() (cmdOpts *CommandSet) {
	// Root level
	root := &CommandSet{
		Description:     "Syslog Forwarder (syslogfwd)",
		FullDescription: "  Accepts RFC 5424 syslog over TCP or TLS and forwards it to a message broker as GELF",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*CommandSet),
	}

	// Forwarding
	root.ChildCommands["run"] = &CommandSet{
		CommandName:     "run",
		Description:     "Run Forwarder (default)",
		FullDescription: "Listens for syslog connections and forwards every message to the configured broker",
	}

	// Validation
	root.ChildCommands["check"] = &CommandSet{
		CommandName:     "check",
		Description:     "Check Configuration",
		FullDescription: "Loads and validates the configuration file, then exits",
	}

	// Setup
	root.ChildCommands["configure"] = &CommandSet{
		CommandName:     "configure",
		Description:     "Setup Actions",
		FullDescription: "Install or remove the service, or print a template configuration",
	}

	// Version Info
	root.ChildCommands["version"] = &CommandSet{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
