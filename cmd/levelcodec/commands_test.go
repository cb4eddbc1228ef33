package main

import (
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ernie/levelcodec/internal/assets"
	"github.com/ernie/levelcodec/internal/config"
)

func writeFile(t *testing.T, p string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMaterialSourceRootsAtMaterials(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "materials", "shared", "base.vmt"), []byte("UnlitGeneric\n{\n$basetexture shared/base\n}\n"))
	stub := filepath.Join(dir, "materials", "walls", "stub.vmt")
	writeFile(t, stub, []byte("patch\n{\ninclude materials/shared/base.vmt\n}\n"))

	fsys, name, closer, err := materialSource(config.Default(), stub)
	if err != nil {
		t.Fatalf("materialSource: %v", err)
	}
	defer closer()
	if name != "materials/walls/stub.vmt" {
		t.Fatalf("name = %q", name)
	}
	if _, err := fs.Stat(fsys, "materials/shared/base.vmt"); err != nil {
		t.Fatalf("root not at materials parent: %v", err)
	}
}

func TestMaterialSourceFromArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "pak0.zip"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := assets.WriteArchive(f, map[string][]byte{"materials/tile/floor.vmt": []byte("Generic\n{\n}\n")}); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	f.Close()

	cfg := config.Default()
	cfg.Archives = []string{dir}
	_, name, closer, err := materialSource(cfg, "tile/floor")
	if err != nil {
		t.Fatalf("materialSource: %v", err)
	}
	defer closer()
	if name != "materials/tile/floor.vmt" {
		t.Fatalf("name = %q", name)
	}
}

func TestRunBSP2Map(t *testing.T) {
	t.Parallel()

	entities := "{\n\"classname\" \"worldspawn\"\n}\n"
	bsp := make([]byte, 8+17*8)
	copy(bsp, "IBSP")
	binary.LittleEndian.PutUint32(bsp[4:], 0x2E)
	binary.LittleEndian.PutUint32(bsp[8:], uint32(len(bsp)))
	binary.LittleEndian.PutUint32(bsp[12:], uint32(len(entities)))
	bsp = append(bsp, entities...)

	dir := t.TempDir()
	in := filepath.Join(dir, "test.bsp")
	out := filepath.Join(dir, "test.map")
	writeFile(t, in, bsp)

	cfg := config.Default()
	cfg.Format.Newline = "\n"
	if err := runBSP2Map(cfg, []string{in, out}); err != nil {
		t.Fatalf("runBSP2Map: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "// entity 0\n{\n\"classname\" \"worldspawn\"\n}\n"; string(got) != want {
		t.Fatalf("map = %q, want %q", got, want)
	}

	if err := runBSP2Map(cfg, []string{in}); err == nil {
		t.Fatalf("expected argument count error")
	}
}

func TestScanSource(t *testing.T) {
	t.Parallel()

	loose := t.TempDir()
	writeFile(t, filepath.Join(loose, "materials", "a.vmt"), []byte("Generic\n{\n}\n"))
	fsys, closer, err := scanSource(loose)
	if err != nil {
		t.Fatalf("scanSource: %v", err)
	}
	closer()
	if _, ok := fsys.(*assets.Archives); ok {
		t.Fatalf("loose directory opened as archives")
	}

	packed := t.TempDir()
	f, err := os.Create(filepath.Join(packed, "pak0.pk3"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := assets.WriteArchive(f, map[string][]byte{"materials/b.vmt": nil}); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	f.Close()
	fsys, closer, err = scanSource(packed)
	if err != nil {
		t.Fatalf("scanSource: %v", err)
	}
	defer closer()
	a, ok := fsys.(*assets.Archives)
	if !ok {
		t.Fatalf("archive directory not opened as archives")
	}
	if _, ok := a.Source("materials/b.vmt"); !ok {
		t.Fatalf("archive entry missing")
	}
}

func TestRunPack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "pak0.pk3"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := assets.WriteArchive(f, map[string][]byte{
		"materials/tile/floor.vmt": []byte("LightmappedGeneric\n{\n$basetexture tile/floor\n}\n"),
		"materials/tile/floor.vtf": []byte("vtf"),
		"materials/tile/other.vtf": []byte("x"),
	}); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	f.Close()

	cfg := config.Default()
	cfg.Archives = []string{dir}
	out := filepath.Join(t.TempDir(), "floor.zip")
	if err := runPack(cfg, []string{out, "tile/floor"}); err != nil {
		t.Fatalf("runPack: %v", err)
	}

	packed, err := assets.OpenArchives(out)
	if err != nil {
		t.Fatalf("OpenArchives: %v", err)
	}
	defer packed.Close()
	if got, want := packed.Names(), []string{"materials/tile/floor.vmt", "materials/tile/floor.vtf"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("packed = %v, want %v", got, want)
	}

	if err := runPack(cfg, []string{out}); err == nil {
		t.Fatalf("expected argument count error")
	}
}
