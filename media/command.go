package media

import "fmt"

// CommandKind identifies a playback command.
type CommandKind uint8

const (
	CommandPlay CommandKind = iota
	CommandPause
	CommandSeek
)

// Command is sent to the decoder through Decoder.Commands.
type Command struct {
	Kind CommandKind

	// PTS is the seek target in nanoseconds.
	PTS int64
}

// Play resumes playback.
func Play() Command { return Command{Kind: CommandPlay} }

// Pause pauses playback.
func Pause() Command { return Command{Kind: CommandPause} }

// Seek repositions playback at pts nanoseconds.
func Seek(pts int64) Command { return Command{Kind: CommandSeek, PTS: pts} }

func (c Command) String() string {
	switch c.Kind {
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandSeek:
		return fmt.Sprintf("seek(%d)", c.PTS)
	}
	return fmt.Sprintf("Command(%d)", c.Kind)
}
