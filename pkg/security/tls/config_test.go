package tls

import (
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/telemetry/logging"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{in: "", want: tls.VersionTLS13},
		{in: "1.3", want: tls.VersionTLS13},
		{in: "1.2", want: tls.VersionTLS12},
		{in: "1.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCipherSuites(t *testing.T) {
	suites, err := ParseCipherSuites([]string{"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"})
	if err != nil {
		t.Fatalf("ParseCipherSuites() error = %v", err)
	}
	if len(suites) != 1 || suites[0] != tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 {
		t.Errorf("suites = %v", suites)
	}

	if suites, err := ParseCipherSuites(nil); err != nil || suites != nil {
		t.Errorf("ParseCipherSuites(nil) = %v, %v; want nil, nil", suites, err)
	}
	if _, err := ParseCipherSuites([]string{"TLS_RSA_WITH_RC4_128_SHA"}); err == nil {
		t.Error("insecure suite should be rejected")
	}
}

func TestParseClientAuth(t *testing.T) {
	tests := map[string]tls.ClientAuthType{
		"":                tls.RequireAndVerifyClientCert,
		"require":         tls.RequireAndVerifyClientCert,
		"request":         tls.RequestClientCert,
		"verify_if_given": tls.VerifyClientCertIfGiven,
	}
	for mode, want := range tests {
		got, err := ParseClientAuth(mode)
		if err != nil || got != want {
			t.Errorf("ParseClientAuth(%q) = %v, %v; want %v", mode, got, err, want)
		}
	}
	if _, err := ParseClientAuth("optional"); err == nil {
		t.Error("unknown mode should fail")
	}
}

// serveTLS starts an HTTPS server on a loopback port and returns its URL.
func serveTLS(t *testing.T, tlsConfig *tls.Config) string {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", tlsConfig)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return "https://" + ln.Addr().(*net.TCPAddr).String()
}

func client(roots *x509.CertPool, certs ...tls.Certificate) *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: roots, Certificates: certs, MinVersion: tls.VersionTLS12},
		},
	}
}

func TestNewServerConfig_Handshake(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()
	ca := newCert(t, "test-ca", now.Add(-time.Hour), now.Add(24*time.Hour), nil)
	server := newCert(t, "server", now.Add(-time.Hour), now.Add(24*time.Hour), ca)
	certFile, keyFile := server.write(t, dir, "server")

	caFile := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(caFile, ca.certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	roots := x509.NewCertPool()
	roots.AddCert(ca.cert)

	reloader := NewCertificateReloader(certFile, keyFile, 0, logging.NewNop())
	if err := reloader.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	t.Run("server only", func(t *testing.T) {
		tlsConfig, err := NewServerConfig(&config.TLSConfig{Enabled: true, MinVersion: "1.2"}, reloader)
		if err != nil {
			t.Fatalf("NewServerConfig() error = %v", err)
		}
		url := serveTLS(t, tlsConfig)

		resp, err := client(roots).Get(url)
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("mutual", func(t *testing.T) {
		tlsConfig, err := NewServerConfig(&config.TLSConfig{Enabled: true, ClientCAFile: caFile, ClientAuth: "require"}, reloader)
		if err != nil {
			t.Fatalf("NewServerConfig() error = %v", err)
		}
		if tlsConfig.ClientAuth != tls.RequireAndVerifyClientCert {
			t.Errorf("ClientAuth = %v", tlsConfig.ClientAuth)
		}
		url := serveTLS(t, tlsConfig)

		if resp, err := client(roots).Get(url); err == nil {
			resp.Body.Close()
			t.Error("request without a client certificate should fail")
		}

		clientCert := newCert(t, "client", now.Add(-time.Hour), now.Add(24*time.Hour), ca)
		resp, err := client(roots, *clientCert.pair(t)).Get(url)
		if err != nil {
			t.Fatalf("GET with client certificate error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}

func TestNewServerConfig_Errors(t *testing.T) {
	reloader := NewCertificateReloader("server.crt", "server.key", 0, logging.NewNop())
	badCA := filepath.Join(t.TempDir(), "ca.crt")
	if err := os.WriteFile(badCA, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		cfg      *config.TLSConfig
		reloader *CertificateReloader
	}{
		{name: "nil config", cfg: nil, reloader: reloader},
		{name: "nil reloader", cfg: &config.TLSConfig{}, reloader: nil},
		{name: "version", cfg: &config.TLSConfig{MinVersion: "1.0"}, reloader: reloader},
		{name: "cipher", cfg: &config.TLSConfig{CipherSuites: []string{"nope"}}, reloader: reloader},
		{name: "missing CA", cfg: &config.TLSConfig{ClientCAFile: "/nonexistent/ca.crt"}, reloader: reloader},
		{name: "bad CA", cfg: &config.TLSConfig{ClientCAFile: badCA}, reloader: reloader},
		{name: "client auth", cfg: &config.TLSConfig{ClientCAFile: badCA, ClientAuth: "sometimes"}, reloader: reloader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServerConfig(tt.cfg, tt.reloader); err == nil {
				t.Error("NewServerConfig() should fail")
			}
		})
	}
}
