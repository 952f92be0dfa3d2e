package main

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestManifestPrebuiltUsesImage(t *testing.T) {
	cfg := testConfig(t)
	m := BuildManifest(cfg)

	if m.Services.API.Image != APIImage {
		t.Errorf("api image = %q, want %q", m.Services.API.Image, APIImage)
	}
	if m.Services.API.Build != "" {
		t.Errorf("api build set for prebuilt install: %q", m.Services.API.Build)
	}
}

func TestManifestSourceBuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = SourceBuild
	m := BuildManifest(cfg)

	if m.Services.API.Build != "./source" {
		t.Errorf("api build = %q, want ./source", m.Services.API.Build)
	}
	if m.Services.API.Image != "" {
		t.Errorf("api image set for source install: %q", m.Services.API.Image)
	}
}

func TestManifestTLSBranch(t *testing.T) {
	cfg := testConfig(t)
	if m := BuildManifest(cfg); m.Services.Nginx != nil {
		t.Error("proxy service present without TLS intent")
	}

	cfg.EnableTLS = true
	cfg.Domain = "api.example.com"
	m := BuildManifest(cfg)
	if m.Services.Nginx == nil {
		t.Fatal("proxy service missing with TLS intent")
	}
	if m.Services.Nginx.Image != NginxImage {
		t.Errorf("proxy image = %q", m.Services.Nginx.Image)
	}
}

func TestManifestAPIWaitsForHealthyDependencies(t *testing.T) {
	m := BuildManifest(testConfig(t))
	deps := m.Services.API.DependsOn
	if deps == nil {
		t.Fatal("api has no dependencies")
	}
	if deps.Postgres.Condition != "service_healthy" {
		t.Errorf("postgres condition = %q", deps.Postgres.Condition)
	}
	if deps.Redis.Condition != "service_healthy" {
		t.Errorf("redis condition = %q", deps.Redis.Condition)
	}
}

func TestManifestStatefulServicesHaveHealthchecks(t *testing.T) {
	m := BuildManifest(testConfig(t))
	if m.Services.Postgres.Healthcheck == nil {
		t.Error("postgres missing healthcheck")
	}
	if m.Services.Redis.Healthcheck == nil {
		t.Error("redis missing healthcheck")
	}
	if m.Services.Postgres.Healthcheck != nil &&
		!strings.Contains(strings.Join(m.Services.Postgres.Healthcheck.Test, " "), "pg_isready") {
		t.Error("postgres healthcheck does not use pg_isready")
	}
}

func TestManifestSubstitutesFromSettings(t *testing.T) {
	out, err := RenderManifest(BuildManifest(testConfig(t)))
	if err != nil {
		t.Fatalf("RenderManifest() error: %v", err)
	}
	body := string(out)

	for _, key := range []string{EnvKeyPort, EnvKeyAPIKey, EnvKeyPostgresPass, EnvKeyRedisPassword} {
		if !strings.Contains(body, "${"+key+"}") {
			t.Errorf("manifest does not substitute %s", key)
		}
	}
	// Credentials go through substitution; the literal values must never be
	// baked into the manifest.
	if strings.Contains(body, testConfig(t).APIKey) {
		t.Error("manifest contains a literal credential")
	}
}

func TestManifestRenderDeterministic(t *testing.T) {
	cfg := testConfig(t)
	a, err := RenderManifest(BuildManifest(cfg))
	if err != nil {
		t.Fatal(err)
	}
	b, err := RenderManifest(BuildManifest(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("identical configs rendered different manifests")
	}
}

func TestManifestRendersValidYAML(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableTLS = true
	cfg.Domain = "api.example.com"
	out, err := RenderManifest(BuildManifest(cfg))
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("rendered manifest is not valid yaml: %v", err)
	}
	services, ok := decoded["services"].(map[string]any)
	if !ok {
		t.Fatal("manifest missing services block")
	}
	for _, name := range []string{"api", "postgres", "redis", "nginx"} {
		if _, ok := services[name]; !ok {
			t.Errorf("manifest missing service %q", name)
		}
	}
}
