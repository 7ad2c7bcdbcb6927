package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const configTemplate = `log_format = "text"

[server]
host = "127.0.0.1"
port = 3001

[oauth]
client_id = %q
client_secret = %q
redirect_uri = "http://localhost:3001/callback"

[storage]
# One of: file, env, keyring, redis, table
type = "file"
`

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage configuration",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a config file skeleton",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "destination path (default: user config dir)",
					},
				},
				Action: configInitAction,
			},
		},
	}
}

func configInitAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("cannot determine config dir, pass --output: %w", err)
		}
		path = filepath.Join(configDir, "bookmarkd", "config.toml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config at %s", path)
	}

	clientID, clientSecret, err := promptCredentials()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	content := fmt.Sprintf(configTemplate, clientID, clientSecret)
	// 0600: the file holds the client secret
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}

// promptCredentials asks for the registered application credentials when
// attached to a terminal; otherwise it leaves them blank for the operator to
// fill in.
func promptCredentials() (clientID, clientSecret string, err error) {
	stdin := int(os.Stdin.Fd())
	if !term.IsTerminal(stdin) {
		return "", "", nil
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("client id: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("reading client id: %w", err)
	}
	clientID = strings.TrimSpace(line)

	// No echo: the secret must not end up in scrollback
	fmt.Print("client secret: ")
	secret, err := term.ReadPassword(stdin)
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("reading client secret: %w", err)
	}
	clientSecret = strings.TrimSpace(string(secret))

	return clientID, clientSecret, nil
}
