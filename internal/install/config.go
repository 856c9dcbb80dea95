package install

import (
	"fmt"
	"io"
	"os"
	"syslogfwd/internal/forwarder"
	"syslogfwd/internal/global"

	"github.com/BurntSushi/toml"
)

// Example configuration with every commonly changed key filled in
func TemplateConfig() (cfg forwarder.FileConfig) {
	cfg.Input.Type = global.InputTypeTLS
	cfg.Input.Listen = global.DefaultTLSListenAddr
	cfg.Input.Format = global.InputFormatRFC5424
	cfg.Input.Framing = global.DefaultFraming
	cfg.Input.QueueSize = global.DefaultQueueSize
	cfg.Input.Timeout = global.DefaultIdleTimeout.String()
	cfg.Input.MaxLine = global.DefaultMaxLineLength
	cfg.Input.TLSCert = global.DefaultTLSCertPath
	cfg.Input.TLSKey = global.DefaultTLSKeyPath
	cfg.Input.TLSMinVersion = "1.2"

	cfg.Output.Type = global.OutputTypeKafka
	cfg.Output.Format = global.OutputFormatGELF
	cfg.Output.SendTimeout = global.DefaultSendTimeout.String()
	cfg.Output.ConnectTimeout = global.DefaultConnectTimeout.String()
	cfg.Output.GELFExtra = map[string]interface{}{"environment": "production"}
	cfg.Output.KafkaBrokers = []string{"$ENV{KAFKA_BROKER:localhost:9092}"}
	cfg.Output.KafkaTopic = global.DefaultKafkaTopic
	cfg.Output.KafkaAcks = global.DefaultKafkaAcks
	cfg.Output.KafkaCompression = "snappy"

	cfg.Metrics.Enabled = true
	cfg.Metrics.Listen = global.DefaultMetricListenAddr
	cfg.Metrics.Path = global.DefaultMetricPath
	return
}

// Writes the template configuration as TOML
func WriteTemplateConfig(w io.Writer) (err error) {
	encoder := toml.NewEncoder(w)
	encoder.Indent = ""
	err = encoder.Encode(TemplateConfig())
	if err != nil {
		err = fmt.Errorf("error encoding template config: %w", err)
	}
	return
}

func installConfig() (err error) {
	// Don't overwrite existing
	_, err = os.Stat(global.DefaultConfigPath)
	if err == nil {
		question := fmt.Sprintf("Configuration file already exists at '%s'. Are you SURE you want to overwrite it?", global.DefaultConfigPath)
		if !confirm(os.Stdin, question) {
			fmt.Printf("Not overwriting configuration file\n")
			return
		}
	}

	confFile, err := os.OpenFile(global.DefaultConfigPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer confFile.Close()

	err = WriteTemplateConfig(confFile)
	if err != nil {
		return
	}

	fmt.Printf("Successfully wrote template configuration file to '%s'\n", global.DefaultConfigPath)
	return
}

func uninstallConfig() (err error) {
	err = os.Remove(global.DefaultConfigPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return
		}
		err = nil
	}

	fmt.Printf("Successfully removed configuration file '%s'\n", global.DefaultConfigPath)
	return
}
