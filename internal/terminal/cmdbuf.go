package terminal

const (
	byteBS  = 0x08
	byteDEL = 0x7F
	byteCR  = '\r'
	byteLF  = '\n'
)

// CommandBuffer reconstructs the logical command a user typed from the raw
// input byte stream. A terminal stream is literal keystrokes, backspaces
// included, so server-side command logging has to simulate the same erase
// behavior a real terminal renders; otherwise the log records characters the
// user already deleted.
//
// Bytes are processed one at a time. Multi-byte UTF-8 sequences are not
// merged before backspace is applied, so erasing a multi-byte character pops
// a single byte. Known limitation, kept deliberately.
type CommandBuffer struct {
	buf []byte

	// onCommand is invoked with each completed command before the buffer
	// resets. Empty commands (bare newlines) are not reported.
	onCommand func(cmd string)
}

// NewCommandBuffer creates a command buffer. onCommand may be nil.
func NewCommandBuffer(onCommand func(cmd string)) *CommandBuffer {
	return &CommandBuffer{
		onCommand: onCommand,
	}
}

// Feed processes raw input bytes left to right, updating the logical command
func (c *CommandBuffer) Feed(data []byte) {
	for _, b := range data {
		switch {
		case b == byteDEL || b == byteBS:
			// Erase the prior character; a backspace on an empty buffer
			// is a no-op, never an underflow
			if len(c.buf) > 0 {
				c.buf = c.buf[:len(c.buf)-1]
			}

		case b == byteCR || b == byteLF:
			if cmd := string(c.buf); cmd != "" && c.onCommand != nil {
				c.onCommand(cmd)
			}
			c.Reset()

		case b >= 0x20:
			c.buf = append(c.buf, b)

		default:
			// Other control bytes carry no text
		}
	}
}

// Current returns the reconstructed command as of the last processed byte
func (c *CommandBuffer) Current() string {
	return string(c.buf)
}

// Reset clears the accumulator
func (c *CommandBuffer) Reset() {
	c.buf = c.buf[:0]
}
