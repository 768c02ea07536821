package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NhaLeTruc/todo-sync/internal/model"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and remember the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		u, err := a.client.Me(ctx)
		if err != nil {
			return err
		}
		name := ""
		if u.FullName != nil {
			name = " (" + *u.FullName + ")"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s, user #%d\n", u.Email, name, u.ID)
		return nil
	}),
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("password", "p", "", "password (read from stdin when empty)")
	}
	registerCmd.Flags().String("name", "", "full name")
}

func password(cmd *cobra.Command) (string, error) {
	pw, _ := cmd.Flags().GetString("password")
	if pw != "" {
		return pw, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	pw, err := password(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return login(cmd, a, args[0], pw)
}

func login(cmd *cobra.Command, a *app, email, pw string) error {
	out, err := a.client.Login(cmd.Context(), model.LoginRequest{Email: email, Password: pw})
	if err != nil {
		return err
	}
	if err := a.session.Save(out.Token, model.Profile{UserID: out.UserID, Email: out.Email, FullName: out.FullName}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", out.Email)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	pw, err := password(cmd)
	if err != nil {
		return err
	}
	req := model.RegisterRequest{Email: args[0], Password: pw}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		req.FullName = &name
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.client.Register(cmd.Context(), req); err != nil {
		return err
	}
	return login(cmd, a, args[0], pw)
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, _, ok := a.session.Credentials(); ok {
		if err := a.client.Logout(cmd.Context()); err != nil {
			a.logger.Warn("server logout failed", zap.Error(err))
		}
	}
	if err := a.session.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}
