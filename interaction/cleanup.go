package interaction

// BestEffort is the outcome of a teardown step whose failure is logged and discarded.
type BestEffort struct {
	Step string
	Err  error
}

func (b BestEffort) OK() bool {
	return b.Err == nil
}

func attempt(step string, fn func() error) BestEffort {
	err := fn()
	if err != nil {
		log.Warningf("Ignoring failure to %s: %s", step, err)
	}
	return BestEffort{Step: step, Err: err}
}

// Cleanup leaves configuration mode if possible, finalizes the transcript and writes
// exitCommand. The exit is always written, whatever happened before it; the returned
// error only reports that final write.
func (s *Session) Cleanup(exitCommand string) (BestEffort, error) {
	if exitCommand == "" {
		exitCommand = s.dialect.Defaults().ExitCommand
	}
	result := attempt("exit configuration mode", func() error {
		inConfig, err := s.CheckConfigMode("", "", false)
		if err != nil || !inConfig {
			return err
		}
		_, err = s.ExitConfigMode("", "")
		return err
	})
	if t := s.Transcript(); t != nil {
		t.Finalize()
	}
	_, err := s.Write(exitCommand, true)
	return result, err
}
