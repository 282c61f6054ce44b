package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/fleet/internal/model"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFleetSeed(t *testing.T) {
	path := writeSeedFile(t, `
vps:
  - name: shared-no-1
    ip_address: 10.0.0.10
    location: oslo
    max_tenants: 20
    cpu_cores: 8
    memory_mb: 32768
    disk_gb: 500
  - name: shared-no-2
    ip_address: 2001:db8::10
    location: oslo
    max_tenants: 20
    cpu_cores: 8
    memory_mb: 32768
    disk_gb: 500
`)

	seed, err := LoadFleetSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.VPS, 2)
	assert.Equal(t, "shared-no-1", seed.VPS[0].Name)
	assert.Equal(t, 20, seed.VPS[0].MaxTenants)
}

func TestLoadFleetSeed_InvalidIP(t *testing.T) {
	path := writeSeedFile(t, `
vps:
  - name: shared-no-1
    ip_address: not-an-ip
    max_tenants: 20
`)

	_, err := LoadFleetSeed(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ip_address")
}

func TestLoadFleetSeed_BadMaxTenants(t *testing.T) {
	path := writeSeedFile(t, `
vps:
  - name: shared-no-1
    ip_address: 10.0.0.10
    max_tenants: 0
`)

	_, err := LoadFleetSeed(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tenants")
}

func TestLoadFleetSeed_MissingFile(t *testing.T) {
	_, err := LoadFleetSeed("/nonexistent/fleet.yaml")
	require.Error(t, err)
}

func TestSeedVPS_Model(t *testing.T) {
	s := SeedVPS{Name: "shared-no-1", IPAddress: "10.0.0.10", Location: "oslo", MaxTenants: 10, CPUCores: 4, MemoryMB: 8192, DiskGB: 100}
	v := s.Model()

	assert.Equal(t, model.DeploymentShared, v.DeploymentType)
	assert.Equal(t, model.StatusActive, v.Status)
	assert.Equal(t, 10, v.MaxTenants)
	assert.Zero(t, v.CurrentTenants)
}
