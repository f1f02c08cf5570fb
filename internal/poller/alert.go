package poller

import (
	"os/exec"
	"sync"
)

// AlertHandle is one playing buzzer that can be cut off early.
type AlertHandle interface {
	Stop()
}

// Alerter starts the audible new-order alert. Every handle it returns is
// owned by the poller; nothing else starts or stops alerts.
type Alerter interface {
	Play() (AlertHandle, error)
}

// ExecAlerter shells out to a local audio player, one process per alert.
type ExecAlerter struct {
	Player string
	Sound  string
}

func (a *ExecAlerter) Play() (AlertHandle, error) {
	cmd := exec.Command(a.Player, a.Sound)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go cmd.Wait() // reap when playback ends on its own
	return &processHandle{cmd: cmd}, nil
}

type processHandle struct {
	cmd  *exec.Cmd
	once sync.Once
}

func (h *processHandle) Stop() {
	h.once.Do(func() {
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
}
