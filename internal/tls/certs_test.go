// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/pkg/errutil"
)

func TestGenerateSelfSigned(t *testing.T) {
	c, err := GenerateSelfSigned([]string{"auth.example.com", "10.0.0.7", ""})
	require.NoError(t, err)

	cert := c.Certificate
	assert.Equal(t, "userauth", cert.Subject.CommonName)
	assert.ElementsMatch(t, []string{"localhost", "auth.example.com"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 2)
	assert.True(t, cert.IPAddresses[1].Equal(net.ParseIP("10.0.0.7")))
	assert.Contains(t, cert.ExtKeyUsage, x509.ExtKeyUsageServerAuth)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), cert.NotAfter, time.Hour)

	require.NoError(t, cert.VerifyHostname("auth.example.com"))
	require.NoError(t, cert.VerifyHostname("127.0.0.1"))
	assert.Error(t, cert.VerifyHostname("other.example.com"))
}

func TestSaveAndLoadCertificate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	c, err := GenerateSelfSigned(nil)
	require.NoError(t, err)

	require.NoError(t, SaveCertificate(dir, c))

	for _, name := range []string{CertFile, KeyFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}

	loaded, err := LoadCertificate(dir)
	require.NoError(t, err)
	assert.Equal(t, c.Certificate.Raw, loaded.Certificate.Raw)
	assert.True(t, c.PrivateKey.Equal(loaded.PrivateKey))
}

func TestLoadCertificate_Errors(t *testing.T) {
	t.Run("missing files", func(t *testing.T) {
		_, err := LoadCertificate(t.TempDir())
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
	})

	t.Run("not PEM", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, CertFile), []byte("garbage"), 0o600))
		_, err := LoadCertificate(dir)
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
	})
}

func TestEnsureSelfSigned(t *testing.T) {
	t.Run("generates once and reuses", func(t *testing.T) {
		dir := t.TempDir()
		certFile, keyFile, err := EnsureSelfSigned(dir, nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, CertFile), certFile)
		assert.Equal(t, filepath.Join(dir, KeyFile), keyFile)

		first, err := os.ReadFile(certFile)
		require.NoError(t, err)

		_, _, err = EnsureSelfSigned(dir, nil)
		require.NoError(t, err)
		second, err := os.ReadFile(certFile)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("replaces a certificate near expiry", func(t *testing.T) {
		dir := t.TempDir()
		old := certExpiringIn(t, 7*24*time.Hour)
		require.NoError(t, SaveCertificate(dir, old))

		_, _, err := EnsureSelfSigned(dir, nil)
		require.NoError(t, err)

		renewed, err := LoadCertificate(dir)
		require.NoError(t, err)
		assert.NotEqual(t, old.Certificate.SerialNumber, renewed.Certificate.SerialNumber)
		assert.True(t, renewed.Certificate.NotAfter.After(old.Certificate.NotAfter))
	})
}

func TestServerConfig(t *testing.T) {
	certFile, keyFile, err := EnsureSelfSigned(t.TempDir(), nil)
	require.NoError(t, err)

	cfg, err := ServerConfig(certFile, keyFile)
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(cryptotls.VersionTLS12), cfg.MinVersion)

	_, err = ServerConfig(filepath.Join(t.TempDir(), "none.crt"), keyFile)
	errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
}

func certExpiringIn(t *testing.T, d time.Duration) *Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(d),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &Certificate{Certificate: cert, PrivateKey: key}
}
