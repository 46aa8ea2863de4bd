package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeSelfSigned writes a localhost key pair into dir.
func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{"localhost"},
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

// withServerSection appends a server section to the config at cfgPath.
func withServerSection(t *testing.T, cfgPath, section string) {
	t.Helper()
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(section); err != nil {
		t.Fatal(err)
	}
}

func TestServe_DryRunSecurity(t *testing.T) {
	cfgPath := setup(t, testDefinitions)
	certFile, keyFile := writeSelfSigned(t, t.TempDir())
	withServerSection(t, cfgPath, `
server:
  tls:
    enabled: true
    cert_file: `+certFile+`
    key_file: `+keyFile+`
  auth:
    enabled: true
    keys:
      - name: ci
        key: ${secret:ci-key}
`)

	t.Run("resolved", func(t *testing.T) {
		t.Setenv("CONDITIONAL_SECRET_CI_KEY", "sk-ci")
		out, err := execute(t, "serve", "--dry-run", "--config", cfgPath)
		if err != nil {
			t.Fatalf("serve --dry-run error = %v", err)
		}
		if !strings.Contains(out, "Configuration valid") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("unresolved secret", func(t *testing.T) {
		_, err := execute(t, "serve", "--dry-run", "--config", cfgPath)
		if err == nil || !strings.Contains(err.Error(), "server.auth.keys[0].key") {
			t.Errorf("error = %v, want one naming the unresolved key", err)
		}
	})
}

func TestServe_DryRunMissingCertificate(t *testing.T) {
	cfgPath := setup(t, testDefinitions)
	dir := t.TempDir()
	withServerSection(t, cfgPath, `
server:
  tls:
    enabled: true
    cert_file: `+filepath.Join(dir, "missing.crt")+`
    key_file: `+filepath.Join(dir, "missing.key")+`
`)

	if _, err := execute(t, "serve", "--dry-run", "--config", cfgPath); err == nil {
		t.Error("serve --dry-run with missing certificate should fail")
	}
}
