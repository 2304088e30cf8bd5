// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tls provides the HTTPS certificate for the userauth listener:
// operator-supplied PEM files, or a self-signed certificate generated once
// and kept on disk.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// File names used by SaveCertificate and LoadCertificate.
const (
	CertFile = "server.crt"
	KeyFile  = "server.key"
)

// renewBefore is how close to expiry a stored self-signed certificate is replaced.
const renewBefore = 30 * 24 * time.Hour

// Certificate holds a server certificate and its private key.
type Certificate struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// GenerateSelfSigned creates a self-signed server certificate valid for one
// year. It always covers localhost and 127.0.0.1; hosts adds DNS names or IPs.
func GenerateSelfSigned(hosts []string) (*Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_KEYGEN_FAILED").Wrap(err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, oops.Code("TLS_KEYGEN_FAILED").With("operation", "serial").Wrap(err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"userauth"},
			CommonName:   "userauth",
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, oops.Code("TLS_CERT_FAILED").Wrap(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, oops.Code("TLS_CERT_FAILED").With("operation", "parse").Wrap(err)
	}
	return &Certificate{Certificate: cert, PrivateKey: key}, nil
}

// SaveCertificate writes c to dir as server.crt and server.key, creating dir
// with 0700 permissions. Both files are 0600.
func SaveCertificate(dir string, c *Certificate) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("dir", dir).Wrap(err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(c.PrivateKey)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("operation", "marshal key").Wrap(err)
	}

	if err := writePEM(filepath.Join(dir, CertFile), "CERTIFICATE", c.Certificate.Raw); err != nil {
		return err
	}
	return writePEM(filepath.Join(dir, KeyFile), "EC PRIVATE KEY", keyBytes)
}

// LoadCertificate reads a certificate saved by SaveCertificate.
func LoadCertificate(dir string) (*Certificate, error) {
	certBlock, err := readPEM(filepath.Join(dir, CertFile))
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CertFile).Wrap(err)
	}

	keyBlock, err := readPEM(filepath.Join(dir, KeyFile))
	if err != nil {
		return nil, err
	}
	key, err := x509.ParseECPrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", KeyFile).Wrap(err)
	}

	return &Certificate{Certificate: cert, PrivateKey: key}, nil
}

// EnsureSelfSigned returns the certificate and key file paths in dir,
// generating a new self-signed certificate when none is stored or the stored
// one expires within 30 days.
func EnsureSelfSigned(dir string, hosts []string) (certFile, keyFile string, err error) {
	certFile = filepath.Join(dir, CertFile)
	keyFile = filepath.Join(dir, KeyFile)

	if existing, loadErr := LoadCertificate(dir); loadErr == nil &&
		time.Until(existing.Certificate.NotAfter) > renewBefore {
		return certFile, keyFile, nil
	}

	c, err := GenerateSelfSigned(hosts)
	if err != nil {
		return "", "", err
	}
	if err := SaveCertificate(dir, c); err != nil {
		return "", "", err
	}
	return certFile, keyFile, nil
}

// ServerConfig loads a PEM key pair into a TLS 1.2+ server configuration.
func ServerConfig(certFile, keyFile string) (*cryptotls.Config, error) {
	pair, err := cryptotls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("cert_file", certFile).
			With("key_file", keyFile).
			Wrap(err)
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{pair},
		MinVersion:   cryptotls.VersionTLS12,
	}, nil
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", path).Wrap(err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return oops.Code("TLS_SAVE_FAILED").With("file", path).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", path).Wrap(err)
	}
	return nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", path).Wrap(err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", path).Errorf("no PEM data in %s", filepath.Base(path))
	}
	return block, nil
}
