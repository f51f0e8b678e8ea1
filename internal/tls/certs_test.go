// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tls

import (
	cryptotls "crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/pkg/errutil"
)

func generateSet(t *testing.T, dir string) *CA {
	t.Helper()
	ca, err := GenerateCA("test")
	require.NoError(t, err)
	server, err := GenerateServerCert(ca, "auth.internal", "10.0.0.5")
	require.NoError(t, err)
	client, err := GenerateClientCert(ca, ClientName)
	require.NoError(t, err)
	require.NoError(t, SaveCertificates(dir, ca, server, client))
	return ca
}

func TestGenerateCA(t *testing.T) {
	ca, err := GenerateCA("test")
	require.NoError(t, err)

	assert.True(t, ca.Certificate.IsCA)
	assert.Equal(t, "holoauth CA test", ca.Certificate.Subject.CommonName)
	assert.True(t, ca.Certificate.NotAfter.After(ca.Certificate.NotBefore.AddDate(9, 0, 0)))
}

func TestGenerateServerCert(t *testing.T) {
	ca, err := GenerateCA("test")
	require.NoError(t, err)

	cert, err := GenerateServerCert(ca, "auth.internal", "10.0.0.5")
	require.NoError(t, err)

	assert.Equal(t, ServerName, cert.Name)
	assert.ElementsMatch(t, []string{"localhost", DefaultServerName, "auth.internal"}, cert.Certificate.DNSNames)
	require.Len(t, cert.Certificate.IPAddresses, 2)
	assert.True(t, cert.Certificate.IPAddresses[1].Equal(net.ParseIP("10.0.0.5")))
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, cert.Certificate.ExtKeyUsage)

	pool := x509.NewCertPool()
	pool.AddCert(ca.Certificate)
	_, err = cert.Certificate.Verify(x509.VerifyOptions{DNSName: DefaultServerName, Roots: pool})
	assert.NoError(t, err)
}

func TestGenerateClientCert(t *testing.T) {
	ca, err := GenerateCA("test")
	require.NoError(t, err)

	cert, err := GenerateClientCert(ca, "gateway")
	require.NoError(t, err)
	assert.Equal(t, "holoauth-gateway", cert.Certificate.Subject.CommonName)
	assert.Equal(t, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}, cert.Certificate.ExtKeyUsage)
}

func TestGenerateLeaf_RequiresCA(t *testing.T) {
	_, err := GenerateClientCert(nil, "gateway")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "TLS_CERT_FAILED")
}

func TestSaveAndLoadCA(t *testing.T) {
	dir := t.TempDir()
	ca := generateSet(t, dir)

	for _, f := range []string{"root-ca.crt", "root-ca.key", "server.crt", "server.key", "client.crt", "client.key"} {
		info, err := os.Stat(filepath.Join(dir, f))
		require.NoError(t, err, f)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), f)
	}

	loaded, err := LoadCA(dir)
	require.NoError(t, err)
	assert.True(t, loaded.Certificate.Equal(ca.Certificate))
	assert.True(t, loaded.PrivateKey.Equal(ca.PrivateKey))
}

func TestLoadCA_Errors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadCA(t.TempDir())
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
		errutil.AssertErrorContext(t, err, "file", "root-ca.crt")
	})

	t.Run("not PEM", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "root-ca.crt"), []byte("junk"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "root-ca.key"), []byte("junk"), 0o600))
		_, err := LoadCA(dir)
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
	})
}

func TestLoadServerAndClientTLS(t *testing.T) {
	dir := t.TempDir()
	generateSet(t, dir)

	server, err := LoadServerTLS(dir, ServerName)
	require.NoError(t, err)
	assert.Equal(t, cryptotls.RequireAndVerifyClientCert, server.ClientAuth)
	assert.Equal(t, uint16(cryptotls.VersionTLS13), server.MinVersion)

	client, err := LoadClientTLS(dir, ClientName, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerName, client.ServerName)

	require.NoError(t, handshake(t, server, client))
}

func TestLoadServerTLS_RejectsClientFromOtherCA(t *testing.T) {
	dir := t.TempDir()
	generateSet(t, dir)
	other := t.TempDir()
	generateSet(t, other)

	server, err := LoadServerTLS(dir, ServerName)
	require.NoError(t, err)
	client, err := LoadClientTLS(other, ClientName, "")
	require.NoError(t, err)

	assert.Error(t, handshake(t, server, client))
}

func TestLoadServerTLS_Errors(t *testing.T) {
	t.Run("missing pair", func(t *testing.T) {
		_, err := LoadServerTLS(t.TempDir(), ServerName)
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
		errutil.AssertErrorContext(t, err, "file", ServerName)
	})

	t.Run("empty CA", func(t *testing.T) {
		dir := t.TempDir()
		generateSet(t, dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "root-ca.crt"), nil, 0o600))
		_, err := LoadClientTLS(dir, ClientName, "")
		errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
		errutil.AssertErrorContext(t, err, "file", "root-ca.crt")
	})
}

func TestEnsureServerTLS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	cfg, generated, err := EnsureServerTLS(dir)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.NotNil(t, cfg)

	first, err := os.ReadFile(filepath.Join(dir, "root-ca.crt"))
	require.NoError(t, err)

	_, generated, err = EnsureServerTLS(dir)
	require.NoError(t, err)
	assert.False(t, generated)

	second, err := os.ReadFile(filepath.Join(dir, "root-ca.crt"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "existing CA is reused")

	_, err = LoadClientTLS(dir, ClientName, "")
	assert.NoError(t, err, "a client certificate is generated alongside")
}

func TestEnsureServerTLS_PartialSetIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root-ca.crt"), []byte("junk"), 0o600))

	_, generated, err := EnsureServerTLS(dir)
	require.Error(t, err)
	assert.False(t, generated)
	errutil.AssertErrorCode(t, err, "TLS_LOAD_FAILED")
}

func handshake(t *testing.T, serverCfg, clientCfg *cryptotls.Config) error {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	serverErr := make(chan error, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer func() { _ = conn.Close() }()
		serverErr <- cryptotls.Server(conn, serverCfg).Handshake()
	}()

	conn, err := net.Dial("tcp", lis.Addr().String())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	clientErr := cryptotls.Client(conn, clientCfg).Handshake()
	if err := <-serverErr; err != nil {
		return err
	}
	return clientErr
}
