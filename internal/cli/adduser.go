package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"receipts-api/internal/models"
	"receipts-api/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAddUserCommand(rt *app) *cobra.Command {
	var req models.RegisterRequest

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Register a seller account",
		Long: `Register a seller account with the same rules as POST /auth/register.

The password is prompted for when --password is omitted.

Example:
  receiptd adduser --username cashier --name "Olena Petrenko"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				fmt.Fprint(rt.stdout, "Password: ")
				password, err := readPassword(rt.stdin)
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				fmt.Fprintln(rt.stdout)
				req.Password = password
			}

			database, err := rt.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			auth := services.NewAuthService(rt.cfg.JWTSecret, rt.cfg.TokenTTL, rt.cfg.BcryptCost, rt.logger)
			users := services.NewUserService(database, auth, rt.logger)

			user, err := users.Register(cmd.Context(), &req)
			if errors.Is(err, services.ErrUsernameAlreadyRegistered) {
				return fmt.Errorf("user %s already exists: %w", req.Username, err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(rt.stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name printed on receipts")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("name")
	return cmd
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
