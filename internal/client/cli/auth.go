package cli

import (
	"context"
	"fmt"
)

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}

	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Name (empty to derive from email)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}
	check, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}

	resp, err := a.client.Register(ctx, email, password, check, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (%s). Run 'feedhub login' to sign in.\n", resp.Name, resp.UserID)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}

	email, err := getSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}

	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.saveToken(resp.AccessToken); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", resp.Name)
	return nil
}

func (a *App) logout(_ context.Context, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := a.saveToken(""); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
