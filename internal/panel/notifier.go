package panel

import "github.com/rs/zerolog"

// LogNotifier surfaces staff messages on the console, standing in for the
// UI snackbar when the agent runs headless.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(msg string) {
	n.Log.Info().Str("notice", msg).Msg("staff notification")
}
