package worker

import (
	"os"
	"os/signal"
	"syscall"
)

// signalFlags are the two one-shot, re-armable event flags of a worker
// process. SIGINT feeds the soft interrupt flag, SIGTERM the hard
// terminate flag. Each channel has capacity 1 so pending deliveries
// coalesce and receiving re-arms the flag. The OS signal path is the
// only setter; the runner's race loop is the only reader.
type signalFlags struct {
	interrupt chan os.Signal
	terminate chan os.Signal
}

// installSignalFlags registers the OS signal handlers. Before this is
// called both signals keep their default process-killing disposition.
func installSignalFlags() *signalFlags {
	f := &signalFlags{
		interrupt: make(chan os.Signal, 1),
		terminate: make(chan os.Signal, 1),
	}
	signal.Notify(f.interrupt, syscall.SIGINT)
	signal.Notify(f.terminate, syscall.SIGTERM)
	return f
}

func (f *signalFlags) uninstall() {
	signal.Stop(f.interrupt)
	signal.Stop(f.terminate)
}

// signalNumber extracts the numeric value used as the exit status on
// the hard-terminate path.
func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return int(syscall.SIGTERM)
}
