package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/tidegate/tidegatectl/pkg/logging"
)

// TLSProvisioner issues the certificate and emits the reverse-proxy config.
//
// # Description
//
// Issuance runs before the stack is launched, so the first certificate is
// obtained in standalone mode (certbot binds :80 itself). The emitted proxy
// config then serves the ACME webroot from the stack's shared volume, which
// is what renewals use. The whole stage is a soft failure: a host whose
// domain does not resolve yet still gets a working plain-HTTP install plus a
// warning, never an aborted one.
type TLSProvisioner struct {
	pm  ProcessManager
	log *logging.Logger
	out io.Writer
}

// NewTLSProvisioner creates a TLS provisioner.
func NewTLSProvisioner(pm ProcessManager, log *logging.Logger, out io.Writer) *TLSProvisioner {
	return &TLSProvisioner{pm: pm, log: log, out: out}
}

// Provision installs certbot, obtains the certificate, and writes the proxy
// config. The returned error is advisory; the pipeline downgrades it to a
// warning and continues with the HTTP fallback config this method leaves
// behind on failure.
func (p *TLSProvisioner) Provision(ctx context.Context, session *Session, installer PlatformInstaller) error {
	cfg := session.Config
	if !cfg.EnableTLS {
		return nil
	}

	nginxDir := filepath.Join(cfg.InstallDir, "nginx")
	webroot := cfg.DataDir("certbot")
	for _, dir := range []string{nginxDir, webroot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create proxy dirs: %w", err)
		}
	}

	if err := p.ensureCertbot(ctx, installer); err != nil {
		p.writeFallbackConfig(nginxDir, cfg)
		return fmt.Errorf("certbot unavailable; serving plain HTTP (install certbot, then run: %s): %w",
			ManualIssueCommand(cfg), err)
	}

	if err := p.issue(ctx, cfg); err != nil {
		p.writeFallbackConfig(nginxDir, cfg)
		return fmt.Errorf("certificate issuance for %s failed; serving plain HTTP (retry with: %s): %w",
			cfg.Domain, ManualIssueCommand(cfg), err)
	}

	conf, err := RenderProxyConfig(cfg, true)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(nginxDir, "default.conf"), conf, 0o644); err != nil {
		return fmt.Errorf("write proxy config: %w", err)
	}
	p.log.Info("certificate issued", "domain", cfg.Domain)
	return nil
}

func (p *TLSProvisioner) ensureCertbot(ctx context.Context, installer PlatformInstaller) error {
	if _, err := p.pm.LookPath("certbot"); err == nil {
		return nil
	}
	return installer.InstallCertbot(ctx)
}

// issue obtains the first certificate in standalone mode. Port 80 must be
// free; the stack is not up yet so only a foreign service can hold it.
func (p *TLSProvisioner) issue(ctx context.Context, cfg *Config) error {
	if p.certExists(cfg.Domain) {
		p.log.Info("certificate already present, skipping issuance", "domain", cfg.Domain)
		return nil
	}
	return p.pm.RunStreaming(ctx, p.out, "certbot", "certonly",
		"--standalone",
		"--non-interactive",
		"--agree-tos",
		"-m", cfg.ContactEmail,
		"-d", cfg.Domain,
	)
}

// ManualIssueCommand is the copy-paste reissuance command surfaced in the
// soft-failure warning.
func ManualIssueCommand(cfg *Config) string {
	return fmt.Sprintf("certbot certonly --standalone -d %s -m %s --agree-tos --non-interactive",
		cfg.Domain, cfg.ContactEmail)
}

func (p *TLSProvisioner) certExists(domain string) bool {
	_, err := os.Stat(filepath.Join("/etc/letsencrypt/live", domain, "fullchain.pem"))
	return err == nil
}

// writeFallbackConfig leaves a plain-HTTP proxy config so the nginx service
// in the manifest still starts after a failed issuance.
func (p *TLSProvisioner) writeFallbackConfig(nginxDir string, cfg *Config) {
	conf, err := RenderProxyConfig(cfg, false)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(nginxDir, "default.conf"), conf, 0o644)
}

var proxyConfigTemplate = template.Must(template.New("nginx").Parse(`server {
    listen 80;
    server_name {{.Domain}};

    location /.well-known/acme-challenge/ {
        root /var/www/certbot;
    }
{{if .TLS}}
    location / {
        return 301 https://$host$request_uri;
    }
}

server {
    listen 443 ssl;
    server_name {{.Domain}};

    ssl_certificate /etc/letsencrypt/live/{{.Domain}}/fullchain.pem;
    ssl_certificate_key /etc/letsencrypt/live/{{.Domain}}/privkey.pem;

    location / {
        proxy_pass http://api:{{.Port}};
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
}
{{else}}
    location / {
        proxy_pass http://api:{{.Port}};
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
}
{{end}}`))

// RenderProxyConfig renders the reverse-proxy server config. Pure.
func RenderProxyConfig(cfg *Config, tls bool) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Domain string
		Port   int
		TLS    bool
	}{Domain: cfg.Domain, Port: apiInternalPort, TLS: tls}
	if err := proxyConfigTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render proxy config: %w", err)
	}
	return buf.Bytes(), nil
}
