package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/morganhein/modeshell"
	"github.com/morganhein/modeshell/config"
	"github.com/morganhein/modeshell/logger"
)

type options struct {
	inventory       string
	device          string
	configCommands  []string
	show            []string
	save            bool
	confirm         bool
	confirmResponse string
	detectFS        bool
	askEnable       bool
	verbose         int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Log.Critical(err)
		os.Exit(1)
	}
}

func parse(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("modeshell", flag.ContinueOnError)

	fs.StringVarP(&o.inventory, "inventory", "i", "", "Inventory file (YAML)")
	fs.StringVarP(&o.device, "device", "d", "", "Id of the device to connect to")
	fs.StringArrayVarP(&o.configCommands, "config-cmd", "c", nil, "Configuration command (repeatable)")
	fs.StringArrayVar(&o.show, "show", nil, "Privileged command to run and print (repeatable)")
	fs.BoolVar(&o.save, "save", false, "Save the configuration before disconnecting")
	fs.BoolVar(&o.confirm, "confirm", false, "The save command asks for confirmation")
	fs.StringVar(&o.confirmResponse, "confirm-response", "", "Answer to the save confirmation, a bare return when empty")
	fs.BoolVar(&o.detectFS, "detect-fs", false, "Print the writable file system")
	fs.BoolVar(&o.askEnable, "ask-enable", false, "Prompt for the enable secret")
	fs.CountVarP(&o.verbose, "verbose", "v", "Increase verbosity")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.inventory == "" {
		return nil, errors.New("--inventory is required")
	}
	if o.device == "" {
		return nil, errors.New("--device is required")
	}
	return o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parse(args)
	if err != nil {
		return err
	}
	inv, err := config.Load(o.inventory)
	if err != nil {
		return err
	}
	level := inv.Settings.LogLevel
	if o.verbose > 0 {
		level = "DEBUG"
	}
	if err := logger.SetLevel(level); err != nil {
		return err
	}

	dev, err := inv.Device(o.device)
	if err != nil {
		return err
	}
	deviceType, err := dev.DeviceType()
	if err != nil {
		return err
	}
	connectOptions, err := dev.ConnectOptions(inv.Settings)
	if err != nil {
		return err
	}
	if o.askEnable {
		fmt.Fprint(os.Stderr, "Enable secret: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading enable secret: %w", err)
		}
		connectOptions.EnablePassword = string(secret)
	}

	m := modeshell.NewManager()
	s, err := m.Connect(deviceType, dev.ID, connectOptions.Method, connectOptions)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Shutdown(); err != nil {
			logger.Log.Warningf("Unable to disconnect cleanly: %s", err)
		}
	}()
	s.SaveTimeout = inv.Settings.SaveTimeout
	s.SettleDelay = inv.Settings.SettleDelay

	if len(o.show) > 0 || o.detectFS {
		if _, err := s.EnterPrivilegedMode("", "", "", true, true); err != nil {
			return err
		}
	}
	for _, cmd := range o.show {
		output, err := s.SendCommand(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, output)
	}
	if o.detectFS {
		fileSystem, err := s.AutodetectFilesystem("", "")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, fileSystem)
	}
	if len(o.configCommands) > 0 {
		if _, err := s.EnterPrivilegedMode("", "", "", true, true); err != nil {
			return err
		}
		output, err := s.SendConfigSet(o.configCommands)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, output)
	}
	if o.save {
		output, err := s.SaveConfig("", o.confirm, o.confirmResponse)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, output)
	}
	return nil
}
