// Package serial implements the byte-oriented I/O device used by the demo
// shell/heartbeat/receiver processes in cmd/kacchios: reads and writes a
// single byte at a time, and Available reports whether a byte can be read
// without blocking.
//
// Never imported by the scheduler/IPC core itself — I/O is an external
// collaborator here, exactly like internal/memalloc.
package serial

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by any operation on a Device after Close.
var ErrClosed = errors.New("serial: device closed")

// Device is a byte-at-a-time terminal device backed by stdin/stdout, put
// into raw mode so reads do not wait for a newline and keystrokes are not
// echoed by the line discipline — the same "no buffering between me and
// the wire" contract a UART gives the kernel it's wired to.
type Device struct {
	in     *os.File
	out    *os.File
	fd     int
	saved  unix.Termios
	closed bool
}

// Open puts stdin into raw mode and returns a Device reading from stdin and
// writing to stdout. Callers must call Close to restore the terminal.
func Open() (*Device, error) {
	fd := int(os.Stdin.Fd())

	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	raw := *saved
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}

	return &Device{in: os.Stdin, out: os.Stdout, fd: fd, saved: *saved}, nil
}

// Close restores the terminal's original mode.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return unix.IoctlSetTermios(d.fd, unix.TCSETS, &d.saved)
}

// WriteByte writes a single byte to the device.
func (d *Device) WriteByte(b byte) error {
	if d.closed {
		return ErrClosed
	}
	_, err := d.out.Write([]byte{b})
	return err
}

// WriteString writes a string a byte at a time, for the shell's prompts
// and banners.
func (d *Device) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.WriteByte(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Available reports whether ReadByte would return immediately, via a
// zero-timeout poll(2) on the input descriptor.
func (d *Device) Available() bool {
	if d.closed {
		return false
	}
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

// ReadByte blocks until a byte is available and returns it.
func (d *Device) ReadByte() (byte, error) {
	if d.closed {
		return 0, ErrClosed
	}
	var buf [1]byte
	for {
		n, err := d.in.Read(buf[:])
		if err != nil {
			return 0, err
		}
		if n == 1 {
			return buf[0], nil
		}
	}
}
