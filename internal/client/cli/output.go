package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/feedhub/internal/api"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func (a *App) printPosts(posts []*api.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts")
		return
	}

	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tAUTHOR\tCREATED\tTITLE\tFLAGS")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.UserName, p.CreatedAt.Local().Format(time.DateTime), p.Title, postFlags(p))
	}
	w.Flush()

	for _, p := range posts {
		if p.Description == nil && p.PictureURL == nil {
			continue
		}
		fmt.Fprintf(a.out, "\n[%s] %s\n", p.ID, p.Title)
		if p.Description != nil {
			fmt.Fprintln(a.out, *p.Description)
		}
		if p.PictureURL != nil {
			fmt.Fprintln(a.out, "picture:", *p.PictureURL)
		}
	}
}

func postFlags(p *api.Post) string {
	s := ""
	if p.IsMine {
		s = "mine"
	}
	if p.IsFavoriting != nil && *p.IsFavoriting {
		if s != "" {
			s += ","
		}
		s += "fav"
	}
	if s == "" {
		s = "-"
	}
	return s
}

func (a *App) printUsers(users []*api.FollowEntry) {
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users")
		return
	}

	w := newTable(a.out)
	fmt.Fprintln(w, "ID\tNAME\tFOLLOWING")
	for _, u := range users {
		following := "-"
		if u.IsFollowing != nil {
			following = yesNo(*u.IsFollowing)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, following)
	}
	w.Flush()
}

func (a *App) printProfile(p *api.ProfileResponse) {
	w := newTable(a.out)
	fmt.Fprintf(w, "ID:\t%s\n", p.UserID)
	fmt.Fprintf(w, "Name:\t%s\n", p.Name)
	if p.Email != "" {
		fmt.Fprintf(w, "Email:\t%s\n", p.Email)
	}
	fmt.Fprintf(w, "Follows:\t%d\n", p.FollowsCount)
	fmt.Fprintf(w, "Followers:\t%d\n", p.FollowersCount)
	if p.IsFollowing != nil {
		fmt.Fprintf(w, "Following:\t%s\n", yesNo(*p.IsFollowing))
	}
	w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
