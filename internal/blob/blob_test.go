package blob

import (
	"sort"
	"testing"
)

func TestReadWriteExists(t *testing.T) {
	store := NewMemStore()

	ok, err := store.Exists("missing.yml")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("expected missing object to not exist")
	}

	if err := store.Write("config_reader.yml", []byte("name: reader")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := store.Read("config_reader.yml")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "name: reader" {
		t.Errorf("Read() = %q", data)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := NewMemStore()
	for _, name := range []string{"config_a.yml", "config_b.yml", "publication_config.yml"} {
		if err := store.Write(name, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	paths, err := store.List("config_")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(paths)
	if len(paths) != 2 || paths[0] != "config_a.yml" || paths[1] != "config_b.yml" {
		t.Errorf("List() = %v", paths)
	}
}
