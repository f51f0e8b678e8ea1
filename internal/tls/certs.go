// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tls provides certificate generation and mTLS configuration for the
// holoauth gRPC listener.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io/fs"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// File names inside the certs directory.
const (
	CAName     = "root-ca"
	ServerName = "server"
	ClientName = "client"
)

// DefaultServerName is the DNS SAN every generated server certificate carries.
const DefaultServerName = "holoauth"

// CA holds a certificate authority certificate and private key.
type CA struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// Cert is a leaf certificate signed by a CA. Name is the file stem it is
// saved under.
type Cert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
	Name        string
}

// GenerateCA creates a root CA named "holoauth CA {name}" valid for ten years.
func GenerateCA(name string) (*CA, error) {
	key, serial, err := newKeyAndSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"holoauth"},
			CommonName:   "holoauth CA " + name,
		},
		NotBefore:             now,
		NotAfter:              now.AddDate(10, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}

	cert, err := sign(template, template, key, key)
	if err != nil {
		return nil, oops.Code("TLS_CA_FAILED").Wrap(err)
	}
	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// GenerateServerCert creates a server certificate valid for localhost,
// 127.0.0.1, DefaultServerName and each of hosts (DNS names or IPs).
func GenerateServerCert(ca *CA, hosts ...string) (*Cert, error) {
	template := leafTemplate("holoauth-"+ServerName, x509.ExtKeyUsageServerAuth)
	template.DNSNames = []string{"localhost", DefaultServerName}
	template.IPAddresses = []net.IP{net.ParseIP("127.0.0.1")}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}
		template.DNSNames = append(template.DNSNames, h)
	}
	return issue(ca, template, ServerName)
}

// GenerateClientCert creates a client-auth certificate with CN
// "holoauth-{name}".
func GenerateClientCert(ca *CA, name string) (*Cert, error) {
	return issue(ca, leafTemplate("holoauth-"+name, x509.ExtKeyUsageClientAuth), name)
}

// SaveCertificates writes the CA and any leaf certificates to certsDir as
// {name}.crt and {name}.key with 0600 permissions.
func SaveCertificates(certsDir string, ca *CA, certs ...*Cert) error {
	if err := os.MkdirAll(certsDir, 0o700); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", certsDir).Wrap(err)
	}

	if ca != nil {
		if err := savePair(certsDir, CAName, ca.Certificate, ca.PrivateKey); err != nil {
			return err
		}
	}
	for _, c := range certs {
		if err := savePair(certsDir, c.Name, c.Certificate, c.PrivateKey); err != nil {
			return err
		}
	}
	return nil
}

// LoadCA loads an existing CA from the certs directory.
func LoadCA(certsDir string) (*CA, error) {
	certPEM, err := os.ReadFile(filepath.Clean(filepath.Join(certsDir, CAName+".crt")))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".crt").Wrap(err)
	}
	keyPEM, err := os.ReadFile(filepath.Clean(filepath.Join(certsDir, CAName+".key")))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".key").Wrap(err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".crt").Errorf("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".crt").Wrap(err)
	}

	block, _ = pem.Decode(keyPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".key").Errorf("no PEM block")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".key").Wrap(err)
	}

	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// LoadServerTLS builds a TLS 1.3 server config that requires client
// certificates signed by the CA in certsDir.
func LoadServerTLS(certsDir, name string) (*cryptotls.Config, error) {
	cert, pool, err := loadPairAndPool(certsDir, name)
	if err != nil {
		return nil, err
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   cryptotls.RequireAndVerifyClientCert,
		MinVersion:   cryptotls.VersionTLS13,
	}, nil
}

// LoadClientTLS builds a TLS 1.3 client config presenting the named client
// certificate and verifying the server against serverName.
func LoadClientTLS(certsDir, name, serverName string) (*cryptotls.Config, error) {
	cert, pool, err := loadPairAndPool(certsDir, name)
	if err != nil {
		return nil, err
	}
	if serverName == "" {
		serverName = DefaultServerName
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   cryptotls.VersionTLS13,
		ServerName:   serverName,
	}, nil
}

// EnsureServerTLS loads the server config from certsDir, generating a CA,
// server and client certificate first when none of the files exist. Partial
// or unreadable certificate sets are an error, never silently regenerated.
func EnsureServerTLS(certsDir string, hosts ...string) (*cryptotls.Config, bool, error) {
	existing := false
	for _, f := range []string{CAName + ".crt", ServerName + ".crt", ServerName + ".key"} {
		if fileExists(filepath.Join(certsDir, f)) {
			existing = true
			break
		}
	}
	if existing {
		cfg, err := LoadServerTLS(certsDir, ServerName)
		return cfg, false, err
	}

	ca, err := GenerateCA(DefaultServerName)
	if err != nil {
		return nil, false, err
	}
	server, err := GenerateServerCert(ca, hosts...)
	if err != nil {
		return nil, false, err
	}
	client, err := GenerateClientCert(ca, ClientName)
	if err != nil {
		return nil, false, err
	}
	if err := SaveCertificates(certsDir, ca, server, client); err != nil {
		return nil, false, err
	}

	cfg, err := LoadServerTLS(certsDir, ServerName)
	return cfg, true, err
}

func loadPairAndPool(certsDir, name string) (cryptotls.Certificate, *x509.CertPool, error) {
	certPath := filepath.Clean(filepath.Join(certsDir, name+".crt"))
	keyPath := filepath.Clean(filepath.Join(certsDir, name+".key"))

	cert, err := cryptotls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return cryptotls.Certificate{}, nil, oops.Code("TLS_LOAD_FAILED").With("file", name).Wrap(err)
	}

	caPEM, err := os.ReadFile(filepath.Clean(filepath.Join(certsDir, CAName+".crt")))
	if err != nil {
		return cryptotls.Certificate{}, nil, oops.Code("TLS_LOAD_FAILED").With("file", CAName+".crt").Wrap(err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return cryptotls.Certificate{}, nil, oops.Code("TLS_LOAD_FAILED").
			With("file", CAName+".crt").
			Errorf("no certificates in CA file")
	}
	return cert, pool, nil
}

func leafTemplate(commonName string, usage x509.ExtKeyUsage) *x509.Certificate {
	now := time.Now()
	return &x509.Certificate{
		Subject: pkix.Name{
			Organization: []string{"holoauth"},
			CommonName:   commonName,
		},
		NotBefore:   now,
		NotAfter:    now.AddDate(1, 0, 0),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{usage},
	}
}

func issue(ca *CA, template *x509.Certificate, name string) (*Cert, error) {
	if ca == nil {
		return nil, oops.Code("TLS_CERT_FAILED").With("name", name).Errorf("CA is required")
	}
	key, serial, err := newKeyAndSerial()
	if err != nil {
		return nil, err
	}
	template.SerialNumber = serial

	cert, err := sign(template, ca.Certificate, key, ca.PrivateKey)
	if err != nil {
		return nil, oops.Code("TLS_CERT_FAILED").With("name", name).Wrap(err)
	}
	return &Cert{Certificate: cert, PrivateKey: key, Name: name}, nil
}

func newKeyAndSerial() (*ecdsa.PrivateKey, *big.Int, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, oops.Code("TLS_KEY_FAILED").Wrap(err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, oops.Code("TLS_KEY_FAILED").Wrap(err)
	}
	return key, serial, nil
}

func sign(template, parent *x509.Certificate, key, signer *ecdsa.PrivateKey) (*x509.Certificate, error) {
	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, signer)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

func savePair(dir, name string, cert *x509.Certificate, key *ecdsa.PrivateKey) error {
	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", name+".key").Wrap(err)
	}
	if err := writePEM(filepath.Join(dir, name+".crt"), "CERTIFICATE", cert.Raw); err != nil {
		return err
	}
	return writePEM(filepath.Join(dir, name+".key"), "EC PRIVATE KEY", keyBytes)
}

func writePEM(path, blockType string, der []byte) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close()
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("file", filepath.Base(path)).Wrap(err)
	}
	return nil
}

// fileExists treats permission errors as existing so unreadable files are
// never overwritten.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
