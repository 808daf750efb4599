package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/rashdrive/internal/auth"
	"github.com/dmitrijs2005/rashdrive/internal/common"
	"github.com/dmitrijs2005/rashdrive/internal/validate"
)

// getSimpleText and getPassword are indirections used by tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register creates a citizen account. When the auth service requires email
// confirmation no session is started.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if errs := validate.Registration(validate.RegistrationInput{
		Name:            name,
		Email:           email,
		Password:        string(password),
		ConfirmPassword: string(confirm),
	}); !errs.OK() {
		a.printErrors(errs)
		return errs
	}

	sess, err := a.client.SignUp(ctx, auth.SignUpParams{
		Email:    email,
		Password: string(password),
		FullName: name,
		Role:     common.RoleCitizen,
	})
	if err != nil {
		a.println("Registration failed:", err)
		return err
	}
	if sess == nil {
		a.println("Check your email to confirm your account, then log in.")
		return nil
	}
	a.printf("Welcome, %s!\n", sess.User.Name)
	return nil
}

// Login signs in with email and password.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if errs := validate.Login(validate.LoginInput{Email: email, Password: string(password)}); !errs.OK() {
		a.printErrors(errs)
		return errs
	}

	sess, err := a.client.SignInWithPassword(ctx, email, string(password))
	if err != nil {
		a.println("Login failed:", err)
		return err
	}
	a.printf("Signed in as %s\n", sess.User.Email)
	return nil
}

// Logout ends the session locally even when the auth service cannot be
// reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.client.SignOut(ctx); err != nil {
		a.log.Warn(ctx, "remote sign-out failed", "error", err)
	}
	a.println("Signed out.")
	return nil
}

// WhoAmI prints the current identity.
func (a *App) WhoAmI(ctx context.Context) error {
	a.refresh(ctx)
	snap := a.mirror.Snapshot()
	switch {
	case snap.Loading:
		a.println("Session state unknown: the auth service could not be reached.")
	case !snap.Authenticated():
		a.println("Not signed in.")
	default:
		role := snap.User.Role
		if role == "" {
			role = common.RoleCitizen
		}
		a.printf("%s <%s> role=%s id=%s\n", snap.User.Name, snap.User.Email, role, snap.User.ID)
	}
	return nil
}

func (a *App) printErrors(errs validate.Errors) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		a.println(fmt.Sprintf("  %s: %s", f, errs[f]))
	}
}
