// Package bundle assembles the Juju deployment bundle for a Ceph
// benchmarking topology: monitors, OSDs, the woodpecker load-generation
// unit and, optionally, the Rados gateway with its vault/mysql stack.
package bundle

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Options captures everything the user can vary about the deployment.
type Options struct {
	// WoodpeckerCharm is the path to the local woodpecker charm.
	WoodpeckerCharm string
	// NumOSDs is the number of ceph-osd units to deploy.
	NumOSDs int
	// Channel selects the charm channel for the deployed Ceph charms.
	Channel string
	// Series is the machine series for the deployment.
	Series string
	// Storage is the storage specification for the OSD units.
	Storage string
	// Constraints are machine constraints applied to the OSD machines.
	Constraints string
	// PPA selects an alternative package archive for the Ceph packages.
	PPA string
	// Rados adds the Rados gateway and its supporting applications.
	Rados bool
}

// Application is one application entry of the bundle.
type Application struct {
	Charm    string            `yaml:"charm,omitempty"`
	Channel  string            `yaml:"channel,omitempty"`
	NumUnits int               `yaml:"num_units,omitempty"`
	Series   string            `yaml:"series,omitempty"`
	Options  map[string]any    `yaml:"options,omitempty"`
	Storage  map[string]string `yaml:"storage,omitempty"`
	To       []string          `yaml:"to,omitempty"`
}

// Machine is one machine entry of the bundle.
type Machine struct {
	Constraints string `yaml:"constraints,omitempty"`
}

// Bundle is a complete Juju deployment bundle.
type Bundle struct {
	Series       string                  `yaml:"series"`
	Applications map[string]*Application `yaml:"applications"`
	Machines     map[string]Machine      `yaml:"machines"`
	Relations    [][]string              `yaml:"relations"`
}

func basicApplications() map[string]*Application {
	return map[string]*Application{
		"ceph-mon": {
			Charm:    "ch:ceph-mon",
			NumUnits: 3,
			Options:  map[string]any{"monitor-count": 3},
			To:       []string{"0", "1", "2"},
		},
		"woodpecker": {
			NumUnits: 1,
			To:       []string{"3"},
		},
	}
}

func radosApplications() map[string]*Application {
	return map[string]*Application{
		"ceph-radosgw": {
			Charm:    "ch:ceph-radosgw",
			NumUnits: 1,
			To:       []string{"4"},
		},
		"vault-mysql-router": {
			Charm: "ch:mysql-router",
		},
		"mysql-innodb-cluster": {
			Charm:    "ch:mysql-innodb-cluster",
			NumUnits: 3,
			To:       []string{"5", "6", "7"},
		},
		"vault": {
			Charm:    "ch:vault",
			NumUnits: 1,
			To:       []string{"8"},
		},
	}
}

func basicRelations() [][]string {
	return [][]string{
		{"ceph-mon:osd", "ceph-osd:mon"},
		{"woodpecker:ceph-client", "ceph-mon:client"},
	}
}

func radosRelations() [][]string {
	return [][]string{
		{"vault:shared-db", "vault-mysql-router:shared-db"},
		{"vault-mysql-router:db-router", "mysql-innodb-cluster:db-router"},
		{"ceph-radosgw:mon", "ceph-mon:radosgw"},
	}
}

// Build assembles a deployment bundle from the options.
func Build(opts Options) (*Bundle, error) {
	if opts.WoodpeckerCharm == "" {
		return nil, fmt.Errorf("path to the woodpecker charm is required")
	}
	if opts.NumOSDs <= 0 {
		return nil, fmt.Errorf("num_osds must be positive, got %d", opts.NumOSDs)
	}

	apps := basicApplications()
	relations := basicRelations()
	if opts.Rados {
		for name, app := range radosApplications() {
			apps[name] = app
		}
		relations = append(relations, radosRelations()...)
	}

	apps["woodpecker"].Series = opts.Series
	apps["woodpecker"].Charm = opts.WoodpeckerCharm

	osd := &Application{
		Charm:    "ch:ceph-osd",
		NumUnits: opts.NumOSDs,
		Channel:  opts.Channel,
	}
	if opts.Storage != "" {
		osd.Storage = map[string]string{"osd-devices": opts.Storage}
	}
	apps["ceph-osd"] = osd

	if opts.PPA != "" {
		for name, app := range apps {
			if !isCephApp(name) {
				continue
			}
			if app.Options == nil {
				app.Options = map[string]any{}
			}
			app.Options["source"] = opts.PPA
		}
	}

	machines, osdMachines := machineList(apps, opts)
	osd.To = osdMachines

	return &Bundle{
		Series:       opts.Series,
		Applications: apps,
		Machines:     machines,
		Relations:    relations,
	}, nil
}

// machineList produces the bundle machine map: one entry per machine the
// fixed applications are pinned to, followed by the OSD machines carrying
// the user's constraints. The second return value is the OSD placement
// list.
func machineList(apps map[string]*Application, opts Options) (map[string]Machine, []string) {
	numMax := 0
	for _, app := range apps {
		for _, to := range app.To {
			if n, err := strconv.Atoi(to); err == nil && n > numMax {
				numMax = n
			}
		}
	}

	machines := make(map[string]Machine, numMax+1+opts.NumOSDs)
	for i := 0; i <= numMax; i++ {
		machines[strconv.Itoa(i)] = Machine{}
	}

	osdMachines := make([]string, 0, opts.NumOSDs)
	for i := 0; i < opts.NumOSDs; i++ {
		id := strconv.Itoa(numMax + 1 + i)
		machines[id] = Machine{Constraints: opts.Constraints}
		osdMachines = append(osdMachines, id)
	}
	return machines, osdMachines
}

func isCephApp(name string) bool {
	return strings.HasPrefix(name, "ceph-")
}

// Marshal renders the bundle as YAML.
func (b *Bundle) Marshal() ([]byte, error) {
	return yaml.Marshal(b)
}

// WriteFile writes the bundle YAML to path.
func (b *Bundle) WriteFile(path string) error {
	data, err := b.Marshal()
	if err != nil {
		return fmt.Errorf("marshalling bundle: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
