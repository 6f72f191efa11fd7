package transport

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/morganhein/modeshell/schema"
	"github.com/ziutek/telnet"
)

const (
	defaultLoginPattern    = `(?i)(login|username)( name)?:? *$`
	defaultPasswordPattern = `(?i)password:? *$`
)

func (b *base) connectTelnet(options schema.ConnectOptions) (err error) {
	if options.Port == 0 {
		options.Port = 23
	}
	b.connOptions = options
	// connect to the host
	host := fmt.Sprintf("%v:%v", options.Host, options.Port)

	conn, err := telnet.DialTimeout("tcp", host, b.timeout)
	if err != nil {
		log.Info(err)
		return err
	}
	b.telnet.conn = conn

	log.Debug("TCP Connected, trying to login.")

	b.attach(conn, nil, conn)

	if err := b.loginTelnet(options.Username, options.Password); err != nil {
		log.Warning("Unable to login to telnet using username/password combination.")
		b.Disconnect()
		return err
	}

	log.Info("Telnet session created.")
	b.ready = true
	return nil
}

func (b *base) loginTelnet(username, password string) error {
	lp, pp := b.connOptions.LoginPattern, b.connOptions.PasswordPattern
	if lp == "" {
		lp = defaultLoginPattern
	}
	if pp == "" {
		pp = defaultPasswordPattern
	}
	// detect "Login:" prompt
	lr, err := regexp.Compile(lp)
	if err != nil {
		return err
	}
	// detect "Password:" prompt
	pr, err := regexp.Compile(pp)
	if err != nil {
		return err
	}
	if _, err = b.expect(lr, loginTimeout); err != nil {
		return err
	}
	if _, err = b.Write(username, true); err != nil {
		return err
	}
	if _, err = b.expect(pr, loginTimeout); err != nil {
		return err
	}
	if _, err = b.Write(password, true); err != nil {
		return err
	}
	out, err := b.expect(b.prompt, loginTimeout)
	if err != nil {
		var te *schema.TimeoutError
		if errors.As(err, &te) {
			return fmt.Errorf("login rejected: %w", err)
		}
		return err
	}
	log.Debugf("Logged in, prompt: %q", out)
	return nil
}
