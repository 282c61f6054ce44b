package db

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edvin/fleet/internal/model"
	"github.com/edvin/fleet/internal/platform"
)

// FleetSeed is the on-disk format for bootstrapping shared VPS inventory.
// Operators maintain a YAML file listing the machines that already exist;
// fleet-api loads it once with the -seed flag.
type FleetSeed struct {
	VPS []SeedVPS `yaml:"vps"`
}

type SeedVPS struct {
	Name       string `yaml:"name"`
	IPAddress  string `yaml:"ip_address"`
	Location   string `yaml:"location"`
	MaxTenants int    `yaml:"max_tenants"`
	CPUCores   int    `yaml:"cpu_cores"`
	MemoryMB   int    `yaml:"memory_mb"`
	DiskGB     int    `yaml:"disk_gb"`
}

// LoadFleetSeed reads and validates a fleet seed file. Seeded machines are
// always shared: dedicated VPS only ever enter the fleet through the
// deployment workflow.
func LoadFleetSeed(path string) (*FleetSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed FleetSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i, v := range seed.VPS {
		if v.Name == "" {
			return nil, fmt.Errorf("seed vps %d: name is required", i)
		}
		if _, err := netip.ParseAddr(v.IPAddress); err != nil {
			return nil, fmt.Errorf("seed vps %q: invalid ip_address %q", v.Name, v.IPAddress)
		}
		if v.MaxTenants < 1 {
			return nil, fmt.Errorf("seed vps %q: max_tenants must be at least 1", v.Name)
		}
	}

	return &seed, nil
}

// Model converts a seed entry into a fleet VPS row ready for registration.
func (s SeedVPS) Model() *model.VPS {
	now := time.Now()
	return &model.VPS{
		ID:             platform.NewID(),
		Name:           s.Name,
		IPAddress:      s.IPAddress,
		Location:       s.Location,
		DeploymentType: model.DeploymentShared,
		Status:         model.StatusActive,
		MaxTenants:     s.MaxTenants,
		CPUCores:       s.CPUCores,
		MemoryMB:       s.MemoryMB,
		DiskGB:         s.DiskGB,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
