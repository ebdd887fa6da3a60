package procctl

// Command is the decoded value of a slot's COMMAND byte.
type Command uint8

const (
	// CommandNone means no command is pending.
	CommandNone Command = iota
	// CommandStop means a graceful stop has been requested.
	CommandStop
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// EncodeUp returns the UP byte for up.
func (l Layout) EncodeUp(up bool) byte {
	if up {
		return l.UpValue
	}
	return 0
}

// DecodeUp reports whether b is the UP value. Any other byte reads as not up.
func (l Layout) DecodeUp(b byte) bool {
	return b == l.UpValue
}

// EncodeCommand returns the COMMAND byte for c.
func (l Layout) EncodeCommand(c Command) byte {
	if c == CommandStop {
		return l.StopValue
	}
	return 0
}

// DecodeCommand maps the stop value to CommandStop and anything else to CommandNone.
func (l Layout) DecodeCommand(b byte) Command {
	if b == l.StopValue {
		return CommandStop
	}
	return CommandNone
}

// EncodeUp encodes with DefaultLayout.
func EncodeUp(up bool) byte { return DefaultLayout().EncodeUp(up) }

// DecodeUp decodes with DefaultLayout.
func DecodeUp(b byte) bool { return DefaultLayout().DecodeUp(b) }

// EncodeCommand encodes with DefaultLayout.
func EncodeCommand(c Command) byte { return DefaultLayout().EncodeCommand(c) }

// DecodeCommand decodes with DefaultLayout.
func DecodeCommand(b byte) Command { return DefaultLayout().DecodeCommand(b) }
