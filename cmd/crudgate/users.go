package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/artpar/crudgate/app"
	"github.com/artpar/crudgate/core/container"
	"github.com/artpar/crudgate/core/errs"
	"github.com/artpar/crudgate/domain/user"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
	Long: `Manage crudgate user accounts.

Examples:
  crudgate users list
  crudgate users create --email=admin@example.com --name=Admin --admin`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUsersList,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  runUsersCreate,
}

var (
	userEmail    string
	userName     string
	userPassword string
	userAdmin    bool
)

func init() {
	rootCmd.AddCommand(usersCmd)

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)

	usersCreateCmd.Flags().StringVar(&userEmail, "email", "", "user email (required)")
	usersCreateCmd.Flags().StringVar(&userName, "name", "", "user name (required)")
	usersCreateCmd.Flags().StringVar(&userPassword, "password", "", "user password (will prompt if not provided)")
	usersCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant the admin role")
	usersCreateCmd.MarkFlagRequired("email")
	usersCreateCmd.MarkFlagRequired("name")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := container.MustResolve[*app.UserService](a.Container).FindAll(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		fmt.Println()
		fmt.Println("Create a user with: crudgate users create --email=admin@example.com --name=Admin --admin")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tSTATUS")
	fmt.Fprintln(w, "--\t-----\t----\t----\t------")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role, u.Status)
	}
	return w.Flush()
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	if userPassword == "" {
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		userPassword = password
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	role := user.RoleUser
	if userAdmin {
		role = user.RoleAdmin
	}
	created, err := container.MustResolve[*app.UserService](a.Container).Execute(context.Background(), user.Command{
		Email:    &userEmail,
		Name:     &userName,
		Password: &userPassword,
		Role:     &role,
	})
	if err != nil {
		if e, ok := errs.As(err); ok && len(e.Fields) > 0 {
			for field, msg := range e.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("%s Created user: %d\n", checkMark, created.ID)
	fmt.Printf("   Email: %s\n", created.Email)
	fmt.Printf("   Name:  %s\n", created.Name)
	fmt.Printf("   Role:  %s\n", created.Role)
	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // Print newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
