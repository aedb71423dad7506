package retained

import (
	"image"
	"slices"
	"testing"
)

func TestTextures(t *testing.T) {
	px := func() *image.RGBA { return image.NewRGBA(image.Rect(0, 0, 1, 1)) }

	tests := []struct {
		name     string
		validate func(*testing.T, *Textures)
	}{
		{
			name: "ids are never reused",
			validate: func(t *testing.T, tx *Textures) {
				a := tx.Alloc(px())
				tx.Free(a)
				b := tx.Alloc(px())
				if a == NoTexture || b == a {
					t.Errorf("ids = %d, %d", a, b)
				}
			},
		},
		{
			name: "free before upload leaves no trace",
			validate: func(t *testing.T, tx *Textures) {
				id := tx.Alloc(px())
				tx.Free(id)
				if d := tx.TakeDelta(); !d.Empty() {
					t.Errorf("delta = %+v, want empty", d)
				}
				if tx.Live(id) {
					t.Error("freed texture still live")
				}
			},
		},
		{
			name: "free after upload is reported",
			validate: func(t *testing.T, tx *Textures) {
				id := tx.Alloc(px())
				if d := tx.TakeDelta(); len(d.Set) != 1 || d.Set[0].ID != id {
					t.Fatalf("delta = %+v", d)
				}
				tx.Set(id, px())
				tx.Free(id)
				tx.Free(id)
				d := tx.TakeDelta()
				if len(d.Set) != 0 || !slices.Equal(d.Free, []TextureID{id}) {
					t.Errorf("delta = %+v, want one free and no set", d)
				}
			},
		},
		{
			name: "newer set supersedes",
			validate: func(t *testing.T, tx *Textures) {
				id := tx.Alloc(px())
				newer := image.NewRGBA(image.Rect(0, 0, 2, 2))
				if !tx.Set(id, newer) {
					t.Fatal("set on a live texture failed")
				}
				d := tx.TakeDelta()
				if len(d.Set) != 1 || d.Set[0].Image != newer {
					t.Errorf("delta = %+v", d)
				}
				if tx.Set(99, px()) {
					t.Error("set on an unknown id succeeded")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewTextures())
		})
	}
}
