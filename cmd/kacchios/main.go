// Command kacchios boots the kernel core and runs the demo OS image:
// an idle process, a heartbeat, an IPC receiver, and an interactive shell
// over the local terminal.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kacchi-os/kacchios"
	"github.com/kacchi-os/kacchios/internal/logging"
	"github.com/kacchi-os/kacchios/internal/process"
	"github.com/kacchi-os/kacchios/internal/serial"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		capacity int
		quantum  uint32
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "kacchios",
		Short: "Run the kacchiOS scheduler demo",
		Long: "kacchios boots the cooperative kernel core and runs its demo OS image:\n" +
			"an idle process, a heartbeat, an IPC receiver, and an interactive shell.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(capacity, quantum, verbose)
		},
	}

	cmd.Flags().IntVar(&capacity, "capacity", kacchios.DefaultTableCapacity, "process table capacity")
	cmd.Flags().Uint32Var(&quantum, "quantum", kacchios.DefaultTimeQuantum, "scheduler time quantum")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func run(capacity int, quantum uint32, verbose bool) error {
	logCfg := logging.DefaultConfig()
	if verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logCfg)

	dev, err := serial.Open()
	if err != nil {
		return fmt.Errorf("opening serial device: %w", err)
	}
	defer dev.Close()

	params := kacchios.DefaultParams()
	params.TableCapacity = capacity
	params.TimeQuantum = quantum

	k, err := kacchios.Boot(params, &kacchios.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("booting kernel: %w", err)
	}

	queue := k.NewQueue()

	dev.WriteString("\n")
	dev.WriteString("========================================\n")
	dev.WriteString("    kacchiOS - Minimal Baremetal OS\n")
	dev.WriteString("========================================\n")
	dev.WriteString("Hello from kacchiOS!\n")
	dev.WriteString("Starting scheduler demo...\n\n")

	if _, err := k.Spawn(shellProcess(k, dev, queue), nil, 4096); err != nil {
		return fmt.Errorf("spawning shell: %w", err)
	}
	if _, err := k.Spawn(heartbeatProcess(k, dev), nil, 4096); err != nil {
		return fmt.Errorf("spawning heartbeat: %w", err)
	}
	if _, err := k.Spawn(receiverProcess(k, dev, queue), nil, 4096); err != nil {
		return fmt.Errorf("spawning receiver: %w", err)
	}
	if _, err := k.Spawn(idleProcess(k), nil, 4096); err != nil {
		return fmt.Errorf("spawning idle: %w", err)
	}

	k.Run()
	logger.Info("system halted", "halted", k.Halted())
	return nil
}

// idleProcess yields forever, the process the scheduler falls back to when
// nothing else is runnable — it never itself becomes the reason the system
// halts.
func idleProcess(k *kacchios.Kernel) func(any) {
	return func(any) {
		for {
			k.Yield()
		}
	}
}

// busyDelay burns a few scheduling quanta rather than wall-clock time: a
// real sleep would stall the single goroutine holding the baton, since
// nothing else can run concurrently with it.
func busyDelay(k *kacchios.Kernel) {
	for i := 0; i < 5; i++ {
		k.Yield()
	}
}

func heartbeatProcess(k *kacchios.Kernel, dev *serial.Device) func(any) {
	return func(any) {
		tick := uint32(0)
		for i := 0; i < 5; i++ {
			busyDelay(k)
			k.Yield()
		}
		for {
			dev.WriteString(fmt.Sprintf("[heartbeat] tick %d\n", tick))
			tick++
			busyDelay(k)
			k.Yield()
		}
	}
}

func receiverProcess(k *kacchios.Kernel, dev *serial.Device, queue interface {
	Recv() (uint32, error)
}) func(any) {
	return func(any) {
		for {
			val, err := queue.Recv()
			if err != nil {
				return
			}
			dev.WriteString(fmt.Sprintf("[ipc recv] value=%d\n", val))
			k.Yield()
		}
	}
}

const maxShellInput = 128

func shellProcess(k *kacchios.Kernel, dev *serial.Device, queue interface {
	Send(uint32) error
}) func(any) {
	return func(any) {
		var line strings.Builder

		for {
			dev.WriteString("kacchiOS> ")
			line.Reset()

			for {
				for !dev.Available() {
					k.Yield()
				}
				c, err := dev.ReadByte()
				if err != nil {
					return
				}

				switch {
				case c == '\r' || c == '\n':
					dev.WriteString("\n")
					goto dispatch
				case (c == '\b' || c == 0x7F) && line.Len() > 0:
					s := line.String()
					line.Reset()
					line.WriteString(s[:len(s)-1])
					dev.WriteString("\b \b")
				case c >= 32 && c < 127 && line.Len() < maxShellInput-1:
					line.WriteByte(c)
					dev.WriteByte(c)
				}
			}

		dispatch:
			input := line.String()
			if input != "" {
				dispatchCommand(k, dev, queue, input)
			}
			k.Yield()
		}
	}
}

func dispatchCommand(k *kacchios.Kernel, dev *serial.Device, queue interface {
	Send(uint32) error
}, input string) {
	switch {
	case input == "help":
		dev.WriteString("Commands: help, send <num>, ps, mem\n")
	case strings.HasPrefix(input, "send"):
		rest := strings.TrimSpace(strings.TrimPrefix(input, "send"))
		val, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			dev.WriteString("usage: send <num>\n")
			return
		}
		if err := queue.Send(uint32(val)); err != nil {
			dev.WriteString(fmt.Sprintf("send failed: %v\n", err))
			return
		}
		dev.WriteString(fmt.Sprintf("[ipc send] queued %d\n", val))
	case input == "ps":
		printProcessTable(k, dev)
	case input == "mem":
		total, largest := k.Allocator().Stats()
		dev.WriteString(fmt.Sprintf("Heap free: %d bytes, largest block: %d bytes\n", total, largest))
	default:
		dev.WriteString("You typed: " + input + "\n")
	}
}

func printProcessTable(k *kacchios.Kernel, dev *serial.Device) {
	dev.WriteString("PID  STATE      STACK\n")
	table := k.Table()
	for i := 0; i < table.Count(); i++ {
		d := table.ByIndex(i)
		if d == nil || d.State == process.Unused {
			continue
		}
		dev.WriteString(fmt.Sprintf("%-4d %-10s %d\n", d.ID, d.State, d.StackSize()))
	}
}
