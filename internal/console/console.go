package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/ndouglas/rv32ima/internal/core"
	"github.com/ndouglas/rv32ima/internal/log"
)

// ErrNoTTY is returned by New if standard input is not a terminal.
var ErrNoTTY = errors.New("console: not a TTY")

// Register addresses, at the bottom of the core's reserved MMIO window
// (core.MMIOBase..core.MMIOEnd). Status is read-only; writing the data
// register echoes a byte to the terminal, reading it drains the next byte
// read from the terminal, if any.
const (
	StatusAddr = core.MMIOBase
	DataAddr   = core.MMIOBase + 4
)

// Status register bits.
const (
	StatusRXReady = core.Word(1 << 0) // a byte is waiting in the read buffer
	StatusTXReady = core.Word(1 << 1) // the device always accepts a write
)

// Console is a memory-mapped UART backed by a raw Unix terminal. It implements
// core.MMIOHandler, so a harness wires it in with core.NewMachine(size, console).
type Console struct {
	fd     int
	state  *term.State
	out    *term.Terminal
	rxCh   chan byte
	cancel context.CancelFunc
	log    *log.Logger
}

// New puts standard input into raw mode and starts a goroutine that copies
// terminal input onto an internal buffered channel. Callers must call Close
// to restore the terminal and stop the reader.
func New() (*Console, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Console{
		fd:     fd,
		state:  saved,
		out:    term.NewTerminal(os.Stdout, ""),
		rxCh:   make(chan byte, 256),
		cancel: cancel,
		log:    log.DefaultLogger(),
	}

	if err := c.setTerminalParams(1, 0); err != nil {
		_ = term.Restore(fd, saved)
		cancel()

		return nil, err
	}

	go c.readTerminal(ctx)

	return c, nil
}

// Close restores the terminal to its initial state and stops the reader goroutine.
func (c *Console) Close() error {
	c.cancel()
	_ = os.Stdin.SetReadDeadline(time.Now())

	return term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = os.Stdin.SetReadDeadline(time.Time{})

	return nil
}

func (c *Console) readTerminal(ctx context.Context) {
	buf := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := buf.ReadByte()
		if err != nil {
			return
		}

		select {
		case c.rxCh <- b:
		case <-ctx.Done():
			return
		}
	}
}

// LoadMMIO implements core.MMIOHandler.
func (c *Console) LoadMMIO(addr core.Word, _ int) (core.Word, error) {
	switch addr {
	case StatusAddr:
		status := StatusTXReady
		if len(c.rxCh) > 0 {
			status |= StatusRXReady
		}

		return status, nil

	case DataAddr:
		select {
		case b := <-c.rxCh:
			return core.Word(b), nil
		default:
			return 0, nil
		}

	default:
		c.log.Debug("load: unmapped console address", log.String("ADDR", addr.String()))
		return 0, fmt.Errorf("console: load: unmapped address %s", addr)
	}
}

// StoreMMIO implements core.MMIOHandler.
func (c *Console) StoreMMIO(addr core.Word, _ int, val core.Word) error {
	switch addr {
	case DataAddr:
		c.log.Debug("tx", log.String("DATA", val.String()))
		_, err := c.out.Write([]byte{byte(val)})

		return err

	case StatusAddr:
		return nil // read-only

	default:
		return fmt.Errorf("console: store: unmapped address %s", addr)
	}
}
