package monitor

import "io"

// crlfWriter translates bare LF to CRLF. The monitor emits LF line endings
// like its serial console expects; a host terminal in raw mode needs the
// carriage returns put back.
type crlfWriter struct {
	w    io.Writer
	last byte
}

// NewCRLFWriter wraps w with LF to CRLF translation. An LF already preceded
// by CR passes through untouched.
func NewCRLFWriter(w io.Writer) io.Writer {
	return &crlfWriter{w: w}
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == '\n' && c.last != '\r' {
			out = append(out, '\r')
		}
		out = append(out, b)
		c.last = b
	}
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
