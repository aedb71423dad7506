//go:build ffmpeg

package av

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/asticode/go-astiav"

	"github.com/agiangrant/sjik/media"
)

// stream is one decoded input stream with its filter graph.
type stream struct {
	index int
	st    *astiav.Stream
	codec *astiav.CodecContext

	graph *astiav.FilterGraph
	src   *astiav.BuffersrcFilterContext
	sink  *astiav.BuffersinkFilterContext
}

func (s *stream) free() {
	if s == nil {
		return
	}
	if s.graph != nil {
		s.graph.Free()
	}
	if s.codec != nil {
		s.codec.Free()
	}
}

// Source demuxes and decodes one input with FFmpeg.
type Source struct {
	input *astiav.FormatContext
	video *stream
	audio *stream

	hwDevice *astiav.HardwareDeviceContext
	hwFormat astiav.PixelFormat

	packet   *astiav.Packet
	frame    *astiav.Frame
	swFrame  *astiav.Frame
	filtered *astiav.Frame

	pending []media.Unit
	eof     bool
}

var nsTimeBase = astiav.NewRational(1, nanosecond)

// Open opens url and its first video and audio streams. hwaccel names an
// optional hardware device type such as "vaapi" or "videotoolbox"; frames
// decoded on the device are transferred to system memory.
func Open(url, hwaccel string) (media.Source, error) {
	s := &Source{
		input:    astiav.AllocFormatContext(),
		packet:   astiav.AllocPacket(),
		frame:    astiav.AllocFrame(),
		swFrame:  astiav.AllocFrame(),
		filtered: astiav.AllocFrame(),
	}
	if err := s.open(url, hwaccel); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Source) open(url, hwaccel string) error {
	if s.input == nil {
		return errors.New("av: alloc format context failed")
	}
	if err := s.input.OpenInput(url, nil, nil); err != nil {
		return fmt.Errorf("av: open %s: %w", url, err)
	}
	if err := s.input.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("av: stream info: %w", err)
	}

	for _, st := range s.input.Streams() {
		switch st.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if s.video == nil {
				v, err := s.openStream(st, hwaccel)
				if err != nil {
					return err
				}
				s.video = v
			}
		case astiav.MediaTypeAudio:
			if s.audio == nil {
				a, err := s.openStream(st, "")
				if err != nil {
					return err
				}
				if err := s.audioGraph(a); err != nil {
					return err
				}
				s.audio = a
			}
		}
	}
	if s.video == nil {
		return fmt.Errorf("av: %s has no video stream", url)
	}

	logger().Info("media opened", "url", url,
		"width", s.video.codec.Width(), "height", s.video.codec.Height(),
		"audio", s.audio != nil, "hwaccel", hwaccel)
	return nil
}

func (s *Source) openStream(st *astiav.Stream, hwaccel string) (*stream, error) {
	params := st.CodecParameters()
	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("av: no decoder for stream %d", st.Index())
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, errors.New("av: alloc codec context failed")
	}
	out := &stream{index: st.Index(), st: st, codec: cc}
	if err := params.ToCodecContext(cc); err != nil {
		out.free()
		return nil, fmt.Errorf("av: codec parameters: %w", err)
	}
	if hwaccel != "" {
		if err := s.attachHardware(codec, cc, hwaccel); err != nil {
			out.free()
			return nil, err
		}
	}
	if err := cc.Open(codec, nil); err != nil {
		out.free()
		return nil, fmt.Errorf("av: open decoder: %w", err)
	}
	return out, nil
}

func (s *Source) attachHardware(codec *astiav.Codec, cc *astiav.CodecContext, name string) error {
	typ := astiav.FindHardwareDeviceTypeByName(name)
	if typ == astiav.HardwareDeviceTypeNone {
		return fmt.Errorf("av: unknown hardware device type %q", name)
	}
	s.hwFormat = astiav.PixelFormatNone
	for _, cfg := range codec.HardwareConfigs() {
		if cfg.MethodFlags().Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) && cfg.HardwareDeviceType() == typ {
			s.hwFormat = cfg.PixelFormat()
			break
		}
	}
	if s.hwFormat == astiav.PixelFormatNone {
		return fmt.Errorf("av: decoder %s does not support %s", codec.Name(), name)
	}
	dev, err := astiav.CreateHardwareDeviceContext(typ, "", nil, 0)
	if err != nil {
		return fmt.Errorf("av: create %s device: %w", name, err)
	}
	s.hwDevice = dev
	cc.SetHardwareDeviceContext(dev)
	cc.SetPixelFormatCallback(func(formats []astiav.PixelFormat) astiav.PixelFormat {
		for _, f := range formats {
			if f == s.hwFormat {
				return f
			}
		}
		return astiav.PixelFormatNone
	})
	return nil
}

// videoGraph builds the video filter graph from the first decoded frame, so
// that hardware-transferred frames describe their real pixel format.
func (s *Source) videoGraph(f *astiav.Frame) error {
	v := s.video
	params := astiav.AllocBuffersrcFilterContextParameters()
	defer params.Free()
	params.SetWidth(f.Width())
	params.SetHeight(f.Height())
	params.SetPixelFormat(f.PixelFormat())
	params.SetSampleAspectRatio(v.codec.SampleAspectRatio())
	params.SetTimeBase(v.st.TimeBase())
	return buildGraph(v, "buffer", "buffersink", params, VideoFilter)
}

func (s *Source) audioGraph(a *stream) error {
	params := astiav.AllocBuffersrcFilterContextParameters()
	defer params.Free()
	params.SetChannelLayout(a.codec.ChannelLayout())
	params.SetSampleFormat(a.codec.SampleFormat())
	params.SetSampleRate(a.codec.SampleRate())
	params.SetTimeBase(a.st.TimeBase())
	return buildGraph(a, "abuffer", "abuffersink", params, AudioFilter)
}

func buildGraph(s *stream, src, sink string, params *astiav.BuffersrcFilterContextParameters, filter string) error {
	s.graph = astiav.AllocFilterGraph()
	if s.graph == nil {
		return errors.New("av: alloc filter graph failed")
	}
	var err error
	if s.src, err = s.graph.NewBuffersrcFilterContext(astiav.FindFilterByName(src), "in"); err != nil {
		return fmt.Errorf("av: %s: %w", src, err)
	}
	if s.sink, err = s.graph.NewBuffersinkFilterContext(astiav.FindFilterByName(sink), "out"); err != nil {
		return fmt.Errorf("av: %s: %w", sink, err)
	}
	if err := s.src.SetParameters(params); err != nil {
		return fmt.Errorf("av: %s parameters: %w", src, err)
	}
	if err := s.src.Initialize(nil); err != nil {
		return fmt.Errorf("av: %s init: %w", src, err)
	}

	outputs := astiav.AllocFilterInOut()
	defer outputs.Free()
	outputs.SetName("in")
	outputs.SetFilterContext(s.src.FilterContext())
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs := astiav.AllocFilterInOut()
	defer inputs.Free()
	inputs.SetName("out")
	inputs.SetFilterContext(s.sink.FilterContext())
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	if err := s.graph.Parse(filter, inputs, outputs); err != nil {
		return fmt.Errorf("av: parse %q: %w", filter, err)
	}
	if err := s.graph.Configure(); err != nil {
		return fmt.Errorf("av: configure %q: %w", filter, err)
	}
	return nil
}

// Dimensions returns the coded video size.
func (s *Source) Dimensions() (w, h int) {
	return s.video.codec.Width(), s.video.codec.Height()
}

// Next returns the next decoded frame or audio chunk, or io.EOF.
func (s *Source) Next() (media.Unit, error) {
	for len(s.pending) == 0 {
		if s.eof {
			return nil, io.EOF
		}
		if err := s.readPacket(); err != nil {
			return nil, err
		}
	}
	u := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return u, nil
}

func (s *Source) readPacket() error {
	defer s.packet.Unref()
	if err := s.input.ReadFrame(s.packet); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			s.eof = true
			return nil
		}
		return fmt.Errorf("av: read packet: %w", err)
	}

	var st *stream
	switch {
	case s.packet.StreamIndex() == s.video.index:
		st = s.video
	case s.audio != nil && s.packet.StreamIndex() == s.audio.index:
		st = s.audio
	default:
		return nil
	}

	if err := st.codec.SendPacket(s.packet); err != nil {
		// Corrupt packets are skipped.
		logger().Debug("send packet failed", "stream", st.index, "error", err)
		return nil
	}
	for {
		if err := st.codec.ReceiveFrame(s.frame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("av: receive frame: %w", err)
		}
		err := s.filter(st, s.frame)
		s.frame.Unref()
		if err != nil {
			return err
		}
	}
}

// filter pushes a decoded frame through the stream's filter graph and
// queues every frame it produces.
func (s *Source) filter(st *stream, f *astiav.Frame) error {
	if st == s.video {
		if s.hwDevice != nil && f.PixelFormat() == s.hwFormat {
			if err := f.TransferHardwareData(s.swFrame); err != nil {
				return fmt.Errorf("av: transfer hardware frame: %w", err)
			}
			s.swFrame.SetPts(f.Pts())
			f = s.swFrame
			defer s.swFrame.Unref()
		}
		if st.graph == nil {
			if err := s.videoGraph(f); err != nil {
				return err
			}
		}
	}

	if err := st.src.AddFrame(f, astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef)); err != nil {
		return fmt.Errorf("av: filter input: %w", err)
	}
	for {
		if err := st.sink.GetFrame(s.filtered, astiav.NewBuffersinkFlags()); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("av: filter output: %w", err)
		}
		u, err := s.unit(st, s.filtered)
		s.filtered.Unref()
		if err != nil {
			return err
		}
		s.pending = append(s.pending, u)
	}
}

func (s *Source) unit(st *stream, f *astiav.Frame) (media.Unit, error) {
	pts := astiav.RescaleQ(f.Pts(), st.sink.TimeBase(), nsTimeBase)
	data, err := f.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("av: copy frame: %w", err)
	}

	if st == s.video {
		return &media.Frame{
			Data:      data,
			Linesizes: packedLinesizes(f.Width()),
			Width:     f.Width(),
			Height:    f.Height(),
			PTS:       pts,
		}, nil
	}

	n := len(data) / 4
	chunk := make(media.AudioChunk, n)
	for i := range n {
		v := int32(binary.LittleEndian.Uint32(data[i*4:]))
		chunk[i] = media.Sample{PTS: pts, Value: float32(v) / math.MaxInt32}
	}
	return chunk, nil
}

// Seek repositions the input at pts nanoseconds and discards decoder state.
func (s *Source) Seek(pts int64) error {
	ts := astiav.RescaleQ(pts, nsTimeBase, s.video.st.TimeBase())
	if err := s.input.SeekFrame(s.video.index, ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("av: seek to %d: %w", pts, err)
	}
	s.video.codec.FlushBuffers()
	if s.audio != nil {
		s.audio.codec.FlushBuffers()
	}
	clear(s.pending)
	s.pending = s.pending[:0]
	s.eof = false
	return nil
}

// Close releases every FFmpeg resource.
func (s *Source) Close() error {
	s.video.free()
	s.audio.free()
	if s.hwDevice != nil {
		s.hwDevice.Free()
	}
	for _, f := range []*astiav.Frame{s.frame, s.swFrame, s.filtered} {
		if f != nil {
			f.Free()
		}
	}
	if s.packet != nil {
		s.packet.Free()
	}
	if s.input != nil {
		s.input.CloseInput()
		s.input.Free()
	}
	return nil
}

func logger() *slog.Logger { return media.Logger() }
