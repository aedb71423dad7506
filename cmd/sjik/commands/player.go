package commands

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agiangrant/sjik"
	"github.com/agiangrant/sjik/internal/audio"
	"github.com/agiangrant/sjik/internal/av"
	"github.com/agiangrant/sjik/media"
)

// seekStep is the distance covered by one seek key press.
const seekStep = 5 * time.Second

// player bundles the decoder, pacer and audio device of one media source.
type player struct {
	dec    *media.Decoder
	device *audio.Device
}

// startPlayer opens the configured source and starts decoding and pacing
// under g. Playback starts immediately.
func startPlayer(ctx context.Context, g *errgroup.Group, cfg sjik.Config, app *sjik.App) (*player, error) {
	src, err := av.Open(cfg.Media.Source, cfg.Media.HWAccel)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Media.Source, err)
	}
	dec := media.NewDecoder(src, media.DecoderOptions{VideoQueue: cfg.Media.VideoQueue})

	device, err := audio.Open(media.NewAudioOutput(dec), audio.Options{
		SampleRate: cfg.Media.SampleRate,
		Channels:   cfg.Media.Channels,
	})
	if err != nil {
		dec.Close()
		return nil, err
	}

	pacer := media.NewPacer(dec, app.PresentVideo)
	g.Go(func() error { return dec.Start(ctx) })
	g.Go(func() error { return pacer.Run(ctx) })

	p := &player{dec: dec, device: device}
	p.Toggle()
	return p, nil
}

// Toggle switches between playing and paused.
func (p *player) Toggle() {
	if p.dec.Control().Paused() {
		p.send(media.Play())
		p.device.Play()
		return
	}
	p.send(media.Pause())
	p.device.Pause()
}

// SeekBy moves the playhead by d relative to the audio clock.
func (p *player) SeekBy(d time.Duration) {
	pts := max(p.dec.Clock().Now()+int64(d), 0)
	p.send(media.Seek(pts))
}

// send delivers cmd without blocking the window loop; a command is dropped
// while the previous one is still pending.
func (p *player) send(cmd media.Command) {
	select {
	case p.dec.Commands() <- cmd:
	default:
		sjik.Logger().Debug("media command dropped", "command", cmd.String())
	}
}

// Close stops audio output and closes the source.
func (p *player) Close() error {
	if err := p.device.Close(); err != nil {
		p.dec.Close()
		return err
	}
	return p.dec.Close()
}
