package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/feedhub/internal/api"
)

func (a *App) follow(ctx context.Context, args []string) error {
	userID, err := requiredArg(args)
	if err != nil {
		return err
	}
	resp, err := a.client.Follow(ctx, userID)
	if err != nil {
		return err
	}
	if resp.Changed {
		fmt.Fprintf(a.out, "Now following %s\n", userID)
	} else {
		fmt.Fprintf(a.out, "Already following %s\n", userID)
	}
	return nil
}

func (a *App) unfollow(ctx context.Context, args []string) error {
	userID, err := requiredArg(args)
	if err != nil {
		return err
	}
	resp, err := a.client.Unfollow(ctx, userID)
	if err != nil {
		return err
	}
	if resp.Changed {
		fmt.Fprintf(a.out, "Unfollowed %s\n", userID)
	} else {
		fmt.Fprintf(a.out, "Not following %s\n", userID)
	}
	return nil
}

func (a *App) listFollows(ctx context.Context, args []string) error {
	userID, err := optionalArg(args)
	if err != nil {
		return err
	}
	users, err := a.client.ListFollows(ctx, userID)
	if err != nil {
		return err
	}
	a.printUsers(users)
	return nil
}

func (a *App) listFollowers(ctx context.Context, args []string) error {
	userID, err := optionalArg(args)
	if err != nil {
		return err
	}
	users, err := a.client.ListFollowers(ctx, userID)
	if err != nil {
		return err
	}
	a.printUsers(users)
	return nil
}

func (a *App) profile(ctx context.Context, args []string) error {
	userID, err := optionalArg(args)
	if err != nil {
		return err
	}
	p, err := a.client.Profile(ctx, userID)
	if err != nil {
		return err
	}
	a.printProfile(p)
	return nil
}

func (a *App) updateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-profile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email")
	changePassword := fs.Bool("password", false, "prompt for a new password")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}

	req := &api.UpdateProfileRequest{Name: *name, Email: *email}
	if *changePassword {
		var err error
		if req.NewPassword, err = getPassword("New password", a.out); err != nil {
			return err
		}
		if req.NewPasswordCheck, err = getPassword("Repeat new password", a.out); err != nil {
			return err
		}
	}
	if *req == (api.UpdateProfileRequest{}) {
		return ErrUsage
	}

	resp, err := a.client.UpdateProfile(ctx, req)
	if err != nil {
		return err
	}

	if resp.NameChanged {
		fmt.Fprintln(a.out, "Name updated")
	}
	if resp.CredentialsChanged {
		fmt.Fprintln(a.out, "Credentials updated, please log in again")
		return a.saveToken("")
	}
	if !resp.NameChanged && !resp.CredentialsChanged {
		fmt.Fprintln(a.out, "Nothing changed")
	}
	return nil
}
