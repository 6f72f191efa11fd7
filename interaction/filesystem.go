package interaction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/morganhein/modeshell/schema"
)

// AutodetectFilesystem finds the writable file system used for transfers. cmd lists
// the default directory and pattern captures the file system from its header. The
// result is confirmed by listing it directly, because the header can name a file
// system the device then refuses.
func (s *Session) AutodetectFilesystem(cmd, pattern string) (string, error) {
	def := s.dialect.Defaults()
	if cmd == "" {
		cmd = def.FilesystemCommand
	}
	if pattern == "" {
		pattern = def.FilesystemPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	enabled, err := s.CheckPrivilegedMode("")
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", &schema.PrecheckError{Op: "auto-detect the file system", Required: "privileged"}
	}

	output, err := s.SendCommand(cmd)
	if err != nil {
		return "", err
	}
	match := re.FindStringSubmatch(output)
	if len(match) < 2 {
		return "", &schema.DiscoveryError{Command: cmd, Output: output}
	}
	fileSystem := match[1]

	probe := fmt.Sprintf("%s %s", cmd, fileSystem)
	output, err = s.SendCommand(probe)
	if err != nil {
		return "", err
	}
	for _, marker := range def.ErrorMarkers {
		if strings.Contains(output, marker) {
			return "", &schema.DiscoveryError{Command: probe, Output: output}
		}
	}
	log.Debugf("Detected file system %q.", fileSystem)
	return fileSystem, nil
}
