package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_RepoTuning(t *testing.T) {
	tune, err := Load(filepath.Join("..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tune.WangSet != "test_terrain" || tune.Seed != 1337 || tune.Workers != 0 {
		t.Fatalf("unexpected tuning: %+v", tune)
	}
	if tune.Server.Addr != ":8080" || tune.Server.MaxBodyBytes != 16<<20 {
		t.Fatalf("unexpected server tuning: %+v", tune.Server)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("seed: 7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tune, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Defaults()
	if tune.Seed != 7 || tune.MaxGridRows != def.MaxGridRows || tune.Server.Addr != def.Server.Addr {
		t.Fatalf("unexpected tuning: %+v", tune)
	}
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"negative workers": "workers: -1\n",
		"zero grid":        "max_grid_rows: 0\n",
		"bad yaml":         "seed: [\n",
	} {
		p := filepath.Join(dir, "t.yaml")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("missing file should surface os.ErrNotExist, got %v", err)
	}
}
