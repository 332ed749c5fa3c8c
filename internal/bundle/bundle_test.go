//go:build unit

package bundle

import (
	"strings"
	"testing"
)

func baseOptions() Options {
	return Options{
		WoodpeckerCharm: "./woodpecker.charm",
		NumOSDs:         3,
		Channel:         "latest/edge",
		Series:          "jammy",
	}
}

func TestBuildBasicTopology(t *testing.T) {
	b, err := Build(baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"ceph-mon", "ceph-osd", "woodpecker"} {
		if _, ok := b.Applications[name]; !ok {
			t.Fatalf("expected application %s in bundle", name)
		}
	}
	if _, ok := b.Applications["ceph-radosgw"]; ok {
		t.Fatal("rados gateway should not be deployed by default")
	}

	mon := b.Applications["ceph-mon"]
	if mon.NumUnits != 3 || mon.Options["monitor-count"] != 3 {
		t.Fatalf("unexpected ceph-mon application: %+v", mon)
	}

	wp := b.Applications["woodpecker"]
	if wp.Charm != "./woodpecker.charm" || wp.Series != "jammy" {
		t.Fatalf("unexpected woodpecker application: %+v", wp)
	}

	osd := b.Applications["ceph-osd"]
	if osd.Charm != "ch:ceph-osd" || osd.NumUnits != 3 || osd.Channel != "latest/edge" {
		t.Fatalf("unexpected ceph-osd application: %+v", osd)
	}

	// Machines 0-3 for mon and woodpecker, 4-6 for the OSDs.
	if len(b.Machines) != 7 {
		t.Fatalf("expected 7 machines, got %d: %v", len(b.Machines), b.Machines)
	}
	if len(osd.To) != 3 || osd.To[0] != "4" || osd.To[2] != "6" {
		t.Fatalf("unexpected OSD placement: %v", osd.To)
	}

	if len(b.Relations) != 2 {
		t.Fatalf("expected 2 relations, got %v", b.Relations)
	}
}

func TestBuildRadosTopology(t *testing.T) {
	opts := baseOptions()
	opts.Rados = true

	b, err := Build(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"ceph-radosgw", "vault", "vault-mysql-router", "mysql-innodb-cluster"} {
		if _, ok := b.Applications[name]; !ok {
			t.Fatalf("expected application %s with rados enabled", name)
		}
	}
	if len(b.Relations) != 5 {
		t.Fatalf("expected 5 relations, got %v", b.Relations)
	}

	// Highest fixed machine is 8, so OSDs land on 9-11.
	osd := b.Applications["ceph-osd"]
	if len(osd.To) != 3 || osd.To[0] != "9" || osd.To[2] != "11" {
		t.Fatalf("unexpected OSD placement: %v", osd.To)
	}
	if len(b.Machines) != 12 {
		t.Fatalf("expected 12 machines, got %d", len(b.Machines))
	}
}

func TestBuildConstraintsOnOSDMachinesOnly(t *testing.T) {
	opts := baseOptions()
	opts.Constraints = "mem=8G cores=4"

	b, err := Build(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Machines["0"].Constraints != "" {
		t.Fatalf("fixed machines must not carry constraints: %+v", b.Machines["0"])
	}
	for _, id := range b.Applications["ceph-osd"].To {
		if b.Machines[id].Constraints != "mem=8G cores=4" {
			t.Fatalf("machine %s missing constraints: %+v", id, b.Machines[id])
		}
	}
}

func TestBuildStorageAndPPA(t *testing.T) {
	opts := baseOptions()
	opts.Storage = "cinder,10G,1"
	opts.PPA = "ppa:ceph/quincy"

	b, err := Build(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Applications["ceph-osd"].Storage["osd-devices"] != "cinder,10G,1" {
		t.Fatalf("unexpected osd storage: %+v", b.Applications["ceph-osd"].Storage)
	}
	for _, name := range []string{"ceph-mon", "ceph-osd"} {
		if b.Applications[name].Options["source"] != "ppa:ceph/quincy" {
			t.Fatalf("expected ppa source on %s: %+v", name, b.Applications[name].Options)
		}
	}
	// The PPA must not clobber unrelated options.
	if b.Applications["ceph-mon"].Options["monitor-count"] != 3 {
		t.Fatalf("monitor-count lost: %+v", b.Applications["ceph-mon"].Options)
	}
	if _, ok := b.Applications["woodpecker"].Options["source"]; ok {
		t.Fatal("woodpecker must not get the ceph package source")
	}
}

func TestBuildValidation(t *testing.T) {
	opts := baseOptions()
	opts.WoodpeckerCharm = ""
	if _, err := Build(opts); err == nil {
		t.Fatal("expected an error for missing woodpecker charm path")
	}

	opts = baseOptions()
	opts.NumOSDs = 0
	if _, err := Build(opts); err == nil {
		t.Fatal("expected an error for zero OSDs")
	}
}

func TestMarshalYAML(t *testing.T) {
	b, err := Build(baseOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := b.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := string(data)
	for _, want := range []string{"applications:", "machines:", "relations:", "ceph-mon", "series: jammy"} {
		if !strings.Contains(text, want) {
			t.Fatalf("marshalled bundle missing %q:\n%s", want, text)
		}
	}
}
