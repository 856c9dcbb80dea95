// Handles installation of the binary, service unit and template configuration
package install

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Read in installation static files at compile time
//
//go:embed static-files/*
var installationFiles embed.FS

// Full installation (idempotent)
func Run() (err error) {
	// Must run as root
	if os.Geteuid() != 0 {
		err = fmt.Errorf("installation must be run as root")
		return
	}

	// Move binary (self) into place
	err = installBinary()
	if err != nil {
		err = fmt.Errorf("failed installing binary: %w", err)
		return
	}

	// Create template config
	err = installConfig()
	if err != nil {
		err = fmt.Errorf("failed writing template config: %w", err)
		return
	}

	// Create systemd service
	err = installService()
	if err != nil {
		err = fmt.Errorf("failed installing systemd service: %w", err)
		return
	}

	fmt.Printf("Installation completed successfully\n")
	return
}

// Full uninstall. Errors from individual steps are reported and the rest still run.
func Remove() (err error) {
	if !confirm(os.Stdin, "Are you SURE you want to uninstall? (this will remove the configuration file)") {
		fmt.Printf("Aborting uninstall\n")
		return
	}

	// Must run as root
	if os.Geteuid() != 0 {
		err = fmt.Errorf("uninstall must be run as root")
		return
	}

	err = uninstallService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with Systemd service: %v\n", err)
	}

	err = uninstallBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing binary: %v\n", err)
	}

	err = uninstallConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with template config: %v\n", err)
	}
	return
}

// Asks a yes/no question when attached to a terminal. Without a terminal the answer is yes.
func confirm(in io.Reader, question string) (yes bool) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		yes = true
		return
	}

	fmt.Printf("%s (yes/no): ", question)
	reader := bufio.NewReader(in)
	answer, _ := reader.ReadString('\n')
	yes = strings.ToLower(strings.TrimSpace(answer)) == "yes"
	return
}
