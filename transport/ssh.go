package transport

import (
	"fmt"
	"os"
	"time"

	"github.com/morganhein/modeshell/schema"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func publicKeyFile(file string) (ssh.AuthMethod, error) {
	buffer, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	key, err := ssh.ParsePrivateKey(buffer)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(key), nil
}

// CreateSSHConfig builds the client configuration for options. Password, keyboard
// interactive and certificate authentication are offered in that order.
func CreateSSHConfig(options schema.ConnectOptions) (sshConfig *ssh.ClientConfig, err error) {
	sshConfig = &ssh.ClientConfig{
		User:    options.Username,
		Timeout: options.Timeout,
	}
	if options.Password != "" {
		password := options.Password
		sshConfig.Auth = append(sshConfig.Auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	if options.Cert != "" {
		m, err := publicKeyFile(options.Cert)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", options.Cert, err)
		}
		sshConfig.Auth = append(sshConfig.Auth, m)
	}
	if options.KnownHosts != "" {
		cb, err := knownhosts.New(options.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("known_hosts %s: %w", options.KnownHosts, err)
		}
		sshConfig.HostKeyCallback = cb
	} else {
		sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	if len(options.Ciphers) > 0 {
		sshConfig.Ciphers = options.Ciphers
	}
	return sshConfig, nil
}

func (b *base) connectSsh(options schema.ConnectOptions) (err error) {
	if options.Port == 0 {
		options.Port = 22
	}
	if options.Timeout == 0 {
		options.Timeout = b.timeout
	}
	b.ssh.Config, err = CreateSSHConfig(options)
	if err != nil {
		return err
	}
	b.connOptions = options
	host := fmt.Sprint(options.Host, ":", options.Port)
	log.Debug("Dialing ", host)
	conn, err := ssh.Dial("tcp", host, b.ssh.Config)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	b.ssh.connection = conn
	b.ssh.session, err = b.ssh.connection.NewSession()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create session: %w", err)
	}
	stdin, err := b.ssh.session.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := b.ssh.session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := b.ssh.session.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr: %w", err)
	}

	b.attach(stdout, stderr, stdin)

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,     // disable echoing
		ssh.TTY_OP_ISPEED: 14400, // input speed = 14.4kbaud
		ssh.TTY_OP_OSPEED: 14400, // output speed = 14.4kbaud
	}

	// Request PTY
	if err := b.ssh.session.RequestPty("xterm", 100, 100, modes); err != nil {
		b.Disconnect()
		return fmt.Errorf("request for pseudo terminal failed: %w", err)
	}

	// Start remote shell
	if err := b.ssh.session.Shell(); err != nil {
		b.Disconnect()
		return fmt.Errorf("failed to start shell: %w", err)
	}
	log.Info("SSH session created.")
	b.ready = true
	// give the banner a moment so the first prompt probe does not race the MOTD
	time.Sleep(time.Duration(100) * time.Millisecond)
	return nil
}
