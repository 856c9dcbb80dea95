package install

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syslogfwd/internal/global"
)

// Fills the embedded unit template with install paths
func renderUnit(binaryPath, configPath string) (unitFile []byte, err error) {
	template, err := installationFiles.ReadFile("static-files/" + global.ProgBaseName + ".service")
	if err != nil {
		err = fmt.Errorf("unable to retrieve unit file from embedded filesystem: %w", err)
		return
	}

	replacer := strings.NewReplacer(
		"$executableFilePath", binaryPath,
		"$configFilePath", configPath,
	)
	unitFile = []byte(replacer.Replace(string(template)))
	return
}

func installService() (err error) {
	unitName := filepath.Base(global.DefaultUnitPath)

	unitFile, err := renderUnit(global.DefaultBinaryPath, global.DefaultConfigPath)
	if err != nil {
		return
	}

	err = os.WriteFile(global.DefaultUnitPath, unitFile, 0644)
	if err != nil {
		return
	}

	// Reload for new unit file
	err = systemctl("daemon-reload")
	if err != nil {
		return
	}

	// Disabled status is exit code 1, only the output matters
	output, _ := exec.Command("systemctl", "is-enabled", unitName).CombinedOutput()
	if strings.TrimSpace(string(output)) != "enabled" {
		err = systemctl("enable", unitName)
		if err != nil {
			return
		}
	}

	fmt.Printf("Successfully installed Systemd service\n")
	fmt.Printf("  IMPORTANT: modify the configuration to your needs and start the service with 'systemctl start %s'\n", unitName)
	return
}

func uninstallService() (err error) {
	unitName := filepath.Base(global.DefaultUnitPath)

	output, _ := exec.Command("systemctl", "is-enabled", unitName).CombinedOutput()
	if strings.TrimSpace(string(output)) == "enabled" {
		err = systemctl("disable", "--now", unitName)
		if err != nil {
			return
		}
	}

	err = os.Remove(global.DefaultUnitPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return
		}
		err = nil
	}

	// Reload for removed unit file
	err = systemctl("daemon-reload")
	if err != nil {
		return
	}

	fmt.Printf("Successfully uninstalled systemd service\n")
	return
}

func systemctl(args ...string) (err error) {
	output, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		err = fmt.Errorf("systemctl %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return
}
