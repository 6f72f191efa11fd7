package interaction

// SaveConfig persists the running configuration. The session is moved to privileged
// mode first. Without confirm the command is read until the prompt with SaveTimeout.
// With confirm the command and then confirmResponse, or a bare return when it is empty,
// are each sent with a timing-based read, for platforms that ask before writing.
// The echoed command and trailing prompt are kept so callers can look for the
// platform's success or failure banner.
func (s *Session) SaveConfig(cmd string, confirm bool, confirmResponse string) (string, error) {
	if cmd == "" {
		cmd = s.dialect.Defaults().SaveCommand
	}
	if _, err := s.EnterPrivilegedMode("", "", "", true, true); err != nil {
		return "", err
	}
	log.Debugf("Saving configuration with %q.", cmd)
	if !confirm {
		return s.sendCommandTimeout(cmd, s.SaveTimeout)
	}
	output, err := s.sendTiming(cmd)
	if err != nil {
		return output, err
	}
	out, err := s.sendTiming(confirmResponse)
	return output + out, err
}
