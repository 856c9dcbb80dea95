package input

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// Builds server TLS configuration from certificate files
func NewTLSConfig(cfg TLSConfig) (tlsConfig *tls.Config, err error) {
	cert, err := loadCertificate(cfg)
	if err != nil {
		return
	}

	tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
	}

	tlsConfig.MinVersion, err = parseTLSVersion(cfg.MinVersion)
	if err != nil {
		tlsConfig = nil
		return
	}

	if len(cfg.Ciphers) > 0 {
		tlsConfig.CipherSuites, err = parseCipherSuites(cfg.Ciphers)
		if err != nil {
			tlsConfig = nil
			return
		}
	}

	if cfg.CAFile != "" {
		var pool *x509.CertPool
		pool, err = loadCertPool(cfg.CAFile)
		if err != nil {
			tlsConfig = nil
			return
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}
	if cfg.VerifyPeer {
		if tlsConfig.ClientCAs == nil {
			tlsConfig = nil
			err = fmt.Errorf("client certificate verification requires a CA file")
			return
		}
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return
}

// Server certificate either from a PKCS#12 bundle or PEM cert/key pair
func loadCertificate(cfg TLSConfig) (cert tls.Certificate, err error) {
	if cfg.PKCS12File != "" {
		var data []byte
		data, err = os.ReadFile(cfg.PKCS12File)
		if err != nil {
			err = fmt.Errorf("failed reading PKCS#12 file: %w", err)
			return
		}

		key, leaf, chain, decodeErr := pkcs12.DecodeChain(data, cfg.PKCS12Password)
		if decodeErr != nil {
			err = fmt.Errorf("failed decoding PKCS#12 file %s: %w", cfg.PKCS12File, decodeErr)
			return
		}

		cert.Certificate = append(cert.Certificate, leaf.Raw)
		for _, ca := range chain {
			cert.Certificate = append(cert.Certificate, ca.Raw)
		}
		cert.PrivateKey = key
		cert.Leaf = leaf
		return
	}

	if cfg.CertFile == "" || cfg.KeyFile == "" {
		err = fmt.Errorf("TLS input needs either a PKCS#12 bundle or both a certificate and key file")
		return
	}
	cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		err = fmt.Errorf("failed loading certificate/key pair: %w", err)
	}
	return
}

func loadCertPool(path string) (pool *x509.CertPool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed reading CA file: %w", err)
		return
	}
	pool = x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		pool = nil
		err = fmt.Errorf("no PEM certificates found in CA file %s", path)
	}
	return
}

func parseTLSVersion(version string) (id uint16, err error) {
	switch strings.TrimPrefix(strings.ToLower(version), "tls") {
	case "", "1.2":
		id = tls.VersionTLS12
	case "1.3":
		id = tls.VersionTLS13
	case "1.1":
		id = tls.VersionTLS11
	case "1.0":
		id = tls.VersionTLS10
	default:
		err = fmt.Errorf("unknown TLS version %q", version)
	}
	return
}

// Maps IANA suite names to IDs
func parseCipherSuites(names []string) (ids []uint16, err error) {
	known := make(map[string]uint16)
	for _, suite := range tls.CipherSuites() {
		known[suite.Name] = suite.ID
	}
	for _, suite := range tls.InsecureCipherSuites() {
		known[suite.Name] = suite.ID
	}

	for _, name := range names {
		id, ok := known[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			err = fmt.Errorf("unknown cipher suite %q", name)
			ids = nil
			return
		}
		ids = append(ids, id)
	}
	return
}
