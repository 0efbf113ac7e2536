// Command createstaff adds a staff account to the configured store, or
// promotes an existing account to staff.
//
//	createstaff -username root -email root@example.com
//	createstaff -promote -username alice
//
// The password for a new account is read from STAFF_PASSWORD or prompted
// for on the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"usermanagement/auth"
	"usermanagement/config"
	"usermanagement/db"
	"usermanagement/logging"
	"usermanagement/repository"
	"usermanagement/services"
)

func main() {
	username := flag.String("username", "", "staff username")
	email := flag.String("email", "", "staff email")
	promote := flag.Bool("promote", false, "grant staff access to an existing account")
	flag.Parse()

	lg, err := logging.Init(logging.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	if err := run(*username, *email, *promote, os.Stdin, os.Stderr); err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(os.Stderr, verr.Msg)
			os.Exit(2)
		}
		sugar.Fatalf("createstaff: %v", err)
	}
	if *promote {
		sugar.Infow("account promoted to staff", "username", strings.TrimSpace(*username))
		return
	}
	sugar.Infow("staff account created", "username", strings.TrimSpace(*username))
}

func run(username, email string, promote bool, in *os.File, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.DBType == config.DBMemory {
		return fmt.Errorf("DB_TYPE=%s does not persist accounts", cfg.DBType)
	}

	var password string
	if !promote {
		if password, err = staffPassword(in, out); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, store, err := db.OpenUserRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Disconnect(ctx)

	users := services.NewUserService(repo, auth.BcryptHasher{Cost: cfg.BcryptCost})
	if promote {
		if _, err := users.PromoteStaff(ctx, username); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no account named %q", strings.TrimSpace(username))
			}
			return err
		}
		return nil
	}
	_, err = users.CreateStaff(ctx, services.UserForm{
		Username:  username,
		Email:     email,
		Password1: password,
		Password2: password,
	})
	return err
}

// staffPassword prefers STAFF_PASSWORD. Otherwise it prompts twice on a
// terminal, or reads one line from a pipe.
func staffPassword(in *os.File, out io.Writer) (string, error) {
	if pw := os.Getenv("STAFF_PASSWORD"); pw != "" {
		return pw, nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Password (again): ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", services.ErrPasswordMismatch
	}
	return string(first), nil
}
