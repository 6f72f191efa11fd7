package interaction

import (
	"regexp"
	"strings"

	"github.com/morganhein/modeshell/schema"
)

// CheckPrivilegedMode probes the prompt and reports whether it contains check.
// An empty check uses the dialect's privileged marker. A platform without an enable
// step is privileged in every mode, so any answered probe counts.
func (s *Session) CheckPrivilegedMode(check string) (bool, error) {
	def := s.dialect.Defaults()
	always := check == "" && def.EnableCommand == ""
	if check == "" {
		check = def.PrivilegedMarker
	}
	out, err := s.probe(s.promptPattern())
	if err != nil {
		return false, err
	}
	if always {
		return true, nil
	}
	return strings.Contains(lastLine(out), check), nil
}

// EnterPrivilegedMode sends cmd and answers the password prompt with the session secret.
// Empty arguments use the dialect defaults. With checkState the call is a no-op when the
// device is already privileged.
func (s *Session) EnterPrivilegedMode(cmd, pattern, enablePattern string, checkState, caseInsensitive bool) (string, error) {
	def := s.dialect.Defaults()
	if cmd == "" {
		cmd = def.EnableCommand
	}
	if cmd == "" {
		// the platform has no separate privileged level
		return "", nil
	}
	if pattern == "" {
		pattern = def.PasswordPattern
	}
	if enablePattern == "" {
		enablePattern = def.EnablePattern
	}
	if checkState {
		enabled, err := s.CheckPrivilegedMode("")
		if err != nil {
			return "", &schema.AuthenticationError{Command: cmd, Err: err}
		}
		if enabled {
			return "", nil
		}
	}

	flags := ""
	if caseInsensitive {
		flags = "(?i)"
	}
	final := enablePattern
	if final == "" {
		final = s.promptExpr()
	}
	pw, err := regexp.Compile(flags + pattern)
	if err != nil {
		return "", err
	}
	finalRe, err := regexp.Compile(flags + final)
	if err != nil {
		return "", err
	}
	either, err := regexp.Compile(flags + "(" + pattern + ")|(" + final + ")")
	if err != nil {
		return "", err
	}

	log.Debug("Entering privileged mode.")
	if _, err := s.Write(cmd, true); err != nil {
		return "", &schema.AuthenticationError{Command: cmd, Err: err}
	}
	output, err := s.Expect(either, s.Timeout())
	if err != nil {
		log.Warningf("Unable to enter privileged mode on device: %s", err)
		return output, &schema.AuthenticationError{Command: cmd, Output: output, Err: err}
	}
	if pw.MatchString(output) {
		if _, err := s.Write(s.secret, true); err != nil {
			return output, &schema.AuthenticationError{Command: cmd, Output: output, Err: err}
		}
		out, err := s.Expect(finalRe, s.Timeout())
		output += out
		if err != nil {
			log.Warningf("Unable to enter privileged mode on device. Entering the password failed: %s", err)
			return output, &schema.AuthenticationError{Command: cmd, Output: output, Err: err}
		}
	}
	enabled, err := s.CheckPrivilegedMode("")
	if err != nil || !enabled {
		return output, &schema.AuthenticationError{Command: cmd, Output: output, Err: err}
	}
	return output, nil
}

// ExitPrivilegedMode drops back to the unprivileged level if the device is privileged.
func (s *Session) ExitPrivilegedMode(exitCmd string) (string, error) {
	if exitCmd == "" {
		exitCmd = s.dialect.Defaults().ExitEnableCommand
	}
	if exitCmd == "" {
		return "", nil
	}
	enabled, err := s.CheckPrivilegedMode("")
	if err != nil || !enabled {
		return "", err
	}
	output, err := s.sendCommandTimeout(exitCmd, s.Timeout())
	if err != nil {
		return output, &schema.TransitionError{Op: "exit privileged mode", Command: exitCmd, Output: output, Err: err}
	}
	if enabled, err = s.CheckPrivilegedMode(""); err != nil || enabled {
		return output, &schema.TransitionError{Op: "exit privileged mode", Command: exitCmd, Output: output, Err: err}
	}
	return output, nil
}

// CheckConfigMode probes the prompt and reports whether it contains check. When
// pattern is set the probe reads until pattern instead of the full prompt, which still
// works once the device has abbreviated its prompt. forceRegex treats check as a
// regular expression.
func (s *Session) CheckConfigMode(check, pattern string, forceRegex bool) (bool, error) {
	def := s.dialect.Defaults()
	if check == "" {
		check = def.ConfigMarker
	}
	if pattern == "" {
		pattern = def.ConfigCheckPattern
	}
	expectation := s.promptPattern()
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		expectation = re
	}
	out, err := s.probe(expectation)
	if err != nil {
		return false, err
	}
	prompt := lastLine(out)
	if forceRegex {
		return regexp.MatchString(check, prompt)
	}
	return strings.Contains(prompt, check), nil
}

// EnterConfigMode sends command unless the device is already in configuration mode
// and waits for pattern, or the prompt when pattern is empty. flags are regular
// expression flags such as "m" or "is".
func (s *Session) EnterConfigMode(command, pattern, flags string) (string, error) {
	if command == "" {
		command = s.dialect.Defaults().ConfigCommand
	}
	inConfig, err := s.CheckConfigMode("", "", false)
	if err != nil {
		return "", err
	}
	if inConfig {
		return "", nil
	}
	expectation, err := s.compileOrPrompt(pattern, flags)
	if err != nil {
		return "", err
	}
	log.Debug("Entering configuration mode.")
	if _, err := s.Write(command, true); err != nil {
		return "", err
	}
	output, err := s.Expect(expectation, s.Timeout())
	if err != nil {
		return output, &schema.TransitionError{Op: "enter configuration mode", Command: command, Output: output, Err: err}
	}
	if inConfig, err = s.CheckConfigMode("", "", false); err != nil || !inConfig {
		return output, &schema.TransitionError{Op: "enter configuration mode", Command: command, Output: output, Err: err}
	}
	return output, nil
}

// ExitConfigMode leaves configuration mode if the device is in it, waiting for pattern
// or the dialect's exit pattern.
func (s *Session) ExitConfigMode(exitCommand, pattern string) (string, error) {
	def := s.dialect.Defaults()
	if exitCommand == "" {
		exitCommand = def.ExitConfigCommand
	}
	if pattern == "" {
		pattern = def.ExitConfigPattern
	}
	inConfig, err := s.CheckConfigMode("", "", false)
	if err != nil {
		return "", err
	}
	if !inConfig {
		return "", nil
	}
	expectation, err := s.compileOrPrompt(pattern, "")
	if err != nil {
		return "", err
	}
	log.Debug("Exiting configuration mode.")
	if _, err := s.Write(exitCommand, true); err != nil {
		return "", err
	}
	output, err := s.Expect(expectation, s.Timeout())
	if err != nil {
		return output, &schema.TransitionError{Op: "exit configuration mode", Command: exitCommand, Output: output, Err: err}
	}
	if inConfig, err = s.CheckConfigMode("", "", false); err != nil || inConfig {
		return output, &schema.TransitionError{Op: "exit configuration mode", Command: exitCommand, Output: output, Err: err}
	}
	return output, nil
}

func (s *Session) compileOrPrompt(pattern, flags string) (*regexp.Regexp, error) {
	if pattern == "" {
		return s.promptPattern(), nil
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}
