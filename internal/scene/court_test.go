package scene

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"pong-arena/internal/game"
)

func TestDefaultCourtResolvesEveryRole(t *testing.T) {
	c := Default()
	if c.Name != "classic" {
		t.Errorf("Name = %q", c.Name)
	}

	r := game.NewRegistry(c)
	if missing := r.Missing(); len(missing) != 0 {
		t.Fatalf("missing roles: %v", missing)
	}
	if len(r.Walls) != 2 {
		t.Errorf("walls = %d, want 2", len(r.Walls))
	}
	if got := r.Paddles[game.SideLeft].Position; got != (mgl64.Vec3{-600, 0, 0}) {
		t.Errorf("left paddle at %v", got)
	}
}

func TestDefaultCourtPaddlesClearWalls(t *testing.T) {
	r := game.NewRegistry(Default())
	for _, p := range r.Paddles {
		for _, w := range r.Walls {
			if p.Bounds().Intersects(w.Bounds()) {
				t.Errorf("%s starts inside %s", p.Name, w.Name)
			}
		}
	}
}

func TestChildPositionIsRelative(t *testing.T) {
	c, err := Parse([]byte(`
[[node]]
name = "Player"
position = [-100.0, 10.0, 0.0]

  [[node.child]]
  name = "Racket"
  position = [0.0, 5.0, 0.0]
  size = [10.0, 40.0, 10.0]
`))
	if err != nil {
		t.Fatal(err)
	}

	racket, ok := c.Node("Racket")
	if !ok {
		t.Fatal("Racket not indexed")
	}
	if got := racket.Position(); got != (mgl64.Vec3{-100, 15, 0}) {
		t.Errorf("racket world position = %v", got)
	}
	if racket.Parent().Name() != "Player" {
		t.Errorf("parent = %s", racket.Parent().Name())
	}

	player, _ := c.Lookup("Player")
	b := player.Bounds()
	if b.Min != (mgl64.Vec3{-105, -5, -5}) || b.Max != (mgl64.Vec3{-95, 35, 5}) {
		t.Errorf("group bounds = %+v", b)
	}
	if _, ok := player.Child("Racket"); !ok {
		t.Error("Child(Racket) not found")
	}
}

func TestEmptyGroupIsAPoint(t *testing.T) {
	c, err := Parse([]byte(`
[[node]]
name = "Walls"
position = [3.0, 4.0, 0.0]
`))
	if err != nil {
		t.Fatal(err)
	}
	n, _ := c.Lookup("Walls")
	if b := n.Bounds(); b.Min != b.Max || b.Min != (mgl64.Vec3{3, 4, 0}) {
		t.Errorf("bounds = %+v", b)
	}
	if len(n.Children()) != 0 {
		t.Error("expected no children")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		layout  string
		wantErr string
	}{
		{"syntax", `[[node]`, "parse"},
		{"no nodes", `name = "x"`, "no nodes"},
		{"unnamed", "[[node]]\nsize = [1.0, 1.0, 1.0]", "without a name"},
		{"duplicate", "[[node]]\nname = \"A\"\n[[node]]\nname = \"A\"", "duplicate"},
		{"negative size", "[[node]]\nname = \"A\"\nsize = [1.0, -1.0, 1.0]", "negative size"},
		{"unknown key", "[[node]]\nname = \"A\"\ncolour = \"red\"", "unknown keys"},
		{"short vector", "[[node]]\nname = \"A\"\nposition = [1.0, 2.0]", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.layout))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "court.toml")
	if err := os.WriteFile(path, defaultCourt, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != Default().Len() {
		t.Errorf("Len = %d, want %d", c.Len(), Default().Len())
	}

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}
