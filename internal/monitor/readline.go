package monitor

import "context"

// readLine collects one line of operator input with echo. Backspace and DEL
// erase the previous character when the line is non-empty; BEL is ignored;
// CR or LF terminates the line. The terminator that did not end the line is
// skipped if it is the very next byte, which may arrive on the following
// call, so the skip state lives on the Monitor.
func (m *Monitor) readLine(ctx context.Context) (string, error) {
	buf := make([]byte, 0, maxLine)
	for {
		b, err := m.in.ReadByte(ctx)
		if err != nil {
			return "", err
		}
		if b == m.skip && b != 0 {
			m.skip = 0
			continue
		}
		m.skip = 0
		switch b {
		case 0x7f, 0x08:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				m.printf("\x08 \x08")
			}
		case 0x07:
			// BEL: swallow.
		case '\r':
			m.skip = '\n'
			m.printf("\n")
			return string(buf), nil
		case '\n':
			m.skip = '\r'
			m.printf("\n")
			return string(buf), nil
		default:
			if len(buf) < maxLine {
				buf = append(buf, b)
				m.out.Write([]byte{b})
			}
		}
	}
}
