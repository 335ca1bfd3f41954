package console

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"attendance-agent/internal/credentials"
)

var errIncompleteCredentials = errors.New("--user and --password must be given together")

// Options are the command line flags. Everything else is configured through
// the environment.
type Options struct {
	User            string
	Password        string
	CredentialsFile string
}

func ParseArgs(name string, args []string, output io.Writer) (*Options, error) {
	var opts Options

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.User, "user", "", "save this login ID to the credentials file and exit")
	fs.StringVar(&opts.Password, "password", "", "save this password to the credentials file and exit")
	fs.StringVar(&opts.CredentialsFile, "credentials", "", "credentials file location (overrides CREDENTIALS_FILE)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if (opts.User == "") != (opts.Password == "") {
		return nil, errIncompleteCredentials
	}

	return &opts, nil
}

// SavesCredentials reports whether this invocation only stores credentials.
func (o *Options) SavesCredentials() bool {
	return o.User != "" && o.Password != ""
}

// SaveCredentials writes the flag credentials to path and returns the
// resolved location.
func SaveCredentials(opts *Options, path string) (string, error) {
	if opts.CredentialsFile != "" {
		path = opts.CredentialsFile
	}

	store := credentials.NewStore(path)

	if err := store.Save(credentials.Credentials{Username: opts.User, Password: opts.Password}); err != nil {
		return "", err
	}

	return store.Path(), nil
}
