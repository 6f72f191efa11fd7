package logger

import (
	"os"

	"github.com/morganhein/modeshell/schema"
	"github.com/op/go-logging"
)

const module = "modeshell"

var Log schema.Logger

var leveled logging.LeveledBackend

func init() {
	format := logging.MustStringFormatter(
		`%{color}%{time:15:04:05.000} %{shortfile} %{shortfunc} ▶ %{level:.4s} %{id:03x}%{color:reset} %{message}`,
	)

	Log = logging.MustGetLogger(module)
	backend := logging.NewLogBackend(os.Stderr, "", 0)

	backendFormatter := logging.NewBackendFormatter(backend, format)

	leveled = logging.SetBackend(backendFormatter)
	leveled.SetLevel(logging.INFO, "")
}

// SetLevel changes the verbosity, level is one of CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG.
func SetLevel(level string) error {
	l, err := logging.LogLevel(level)
	if err != nil {
		return err
	}
	leveled.SetLevel(l, "")
	return nil
}
