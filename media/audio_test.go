package media

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestAudioOutputRead(t *testing.T) {
	tests := []struct {
		name     string
		paused   bool
		samples  []Sample
		buf      int
		want     []float32
		clock    int64
		leftover int
	}{
		{
			name:    "plays and advances the clock",
			samples: []Sample{{PTS: 100, Value: 0.25}, {PTS: 100, Value: -0.5}, {PTS: 200, Value: 1}},
			buf:     12,
			want:    []float32{0.25, -0.5, 1},
			clock:   200,
		},
		{
			name:    "underrun pads with silence",
			samples: []Sample{{PTS: 300, Value: 0.75}},
			buf:     12,
			want:    []float32{0.75, 0, 0},
			clock:   300,
		},
		{
			name:     "paused writes silence and keeps samples",
			paused:   true,
			samples:  []Sample{{PTS: 100, Value: 0.25}},
			buf:      8,
			want:     []float32{0, 0},
			leftover: 1,
		},
		{
			name:    "zero pts does not move the clock",
			samples: []Sample{{PTS: 0, Value: 0.1}},
			buf:     4,
			want:    []float32{0.1},
		},
		{
			name:    "partial sample bytes are left unwritten",
			samples: []Sample{{PTS: 1, Value: 0.5}},
			buf:     6,
			want:    []float32{0.5},
			clock:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(&fakeSource{}, DecoderOptions{AudioRing: 16})
			d.Control().SetPaused(tt.paused)
			d.Ring().Push(tt.samples)
			out := NewAudioOutput(d)

			p := make([]byte, tt.buf)
			for i := range p {
				p[i] = 0xAA
			}
			n, err := out.Read(p)
			if err != nil {
				t.Fatal(err)
			}
			if n != len(tt.want)*4 {
				t.Fatalf("read %d bytes, want %d", n, len(tt.want)*4)
			}
			for i, want := range tt.want {
				got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
				if got != want {
					t.Errorf("sample %d = %v, want %v", i, got, want)
				}
			}
			if d.Clock().Now() != tt.clock {
				t.Errorf("clock = %d, want %d", d.Clock().Now(), tt.clock)
			}
			if d.Ring().Len() != tt.leftover {
				t.Errorf("ring holds %d, want %d", d.Ring().Len(), tt.leftover)
			}
		})
	}
}
