package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tims/internal/events"
	"tims/internal/rest"
)

const primary = "primary"

var signinEmail string

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and remember the session",
	RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(signinEmail)
		if email == "" {
			var err error
			if email, err = promptEmail(a); err != nil {
				return err
			}
		}
		passwd, err := readPassword(a, "Password: ")
		if err != nil {
			return err
		}
		return signin(ctx, a, email, passwd)
	}),
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the session",
	RunE:  withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error { return signout(ctx, a) }),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	RunE: withSession(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		u, err := fetchUser(ctx, a)
		if err != nil {
			return a.settle(err, nil)
		}
		fmt.Printf("%s <%s> (%s)\n", u.Name, u.Email, u.Type)
		if exp, ok := a.sessions.Expires(); ok {
			fmt.Printf("Session expires %s\n", exp.Format("2006-01-02 15:04"))
		}
		return nil
	}),
}

func init() {
	signinCmd.Flags().StringVarP(&signinEmail, "email", "e", "", "e-mail address to sign in with")
}

func signin(ctx context.Context, a *app, email, passwd string) error {
	// a stale credential must not ride along with the sign in
	a.rest.Session("")

	env, err := a.rest.Create(ctx, primary, "signin", map[string]string{
		"email":  email,
		"passwd": passwd,
	})
	if err != nil {
		return a.settle(err, rest.Handlers{
			rest.CodeInvalidCredentials: func(*rest.ServiceError) error {
				a.hub.Error().Trigger("E-mail or password invalid")
				return errSilent
			},
		})
	}

	var token string
	if err := env.Decode(&token); err != nil {
		return err
	}
	a.rest.Session(token)
	if err := a.sessions.Save(token); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	u, err := fetchUser(ctx, a)
	if err != nil {
		return a.settle(err, nil)
	}
	a.hub.SignedIn().Trigger(*u)
	a.hub.Success().Trigger(fmt.Sprintf("Signed in as %s", u.Email))
	return nil
}

func signout(ctx context.Context, a *app) error {
	_, err := a.rest.Create(ctx, primary, "signout", nil)
	if err != nil {
		var se *rest.ServiceError
		var te *rest.TransportError
		switch {
		case errors.As(err, &se) && se.Handled, errors.As(err, &te) && te.Unauthorized():
			// already signed out by the hooks
			return nil
		}
		rest.Report(a.hub, err)
	}
	a.hub.SignedOut().Trigger(events.SignedOutEvent{})
	a.hub.Success().Trigger("Signed out")
	return nil
}

func fetchUser(ctx context.Context, a *app) (*events.User, error) {
	env, err := a.rest.Read(ctx, primary, "user", nil)
	if err != nil {
		return nil, err
	}
	var u events.User
	if err := env.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func promptEmail(a *app) (string, error) {
	a.printer.Suspend()
	defer a.printer.Resume()
	prompt := promptui.Prompt{
		Label: "E-mail",
		Validate: func(s string) error {
			if !strings.Contains(s, "@") {
				return errors.New("not an e-mail address")
			}
			return nil
		},
	}
	s, err := prompt.Run()
	return strings.TrimSpace(s), err
}

// readPassword reads without echo from a terminal, or a line from piped
// stdin.
func readPassword(a *app, label string) (string, error) {
	a.printer.Suspend()
	defer a.printer.Resume()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
