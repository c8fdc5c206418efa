package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/postq/cache"
	"github.com/reoring/postq/posts"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, read and edit posts through the validating client",
	}
	cmd.AddCommand(
		newListCmd(a),
		newGetCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newWatchCmd(a),
	)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var excerpt bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, store := a.client()
			defer store.Close()
			if excerpt {
				list, err := c.GetPostList(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(a.out, list)
			}
			list, err := c.GetPosts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(a.out, list)
		},
	}
	cmd.Flags().BoolVar(&excerpt, "excerpt", false, "show shortened content and display dates")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store := a.client()
			defer store.Close()
			p, err := c.GetPost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(a.out, p)
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var d posts.Draft
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, store := a.client()
			defer store.Close()
			p, err := c.AddPost(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printJSON(a.out, p)
		},
	}
	f := cmd.Flags()
	f.StringVar(&d.ID, "id", "", "post id (generated when empty)")
	f.StringVar(&d.Name, "name", "", "post title")
	f.StringVar(&d.Content, "content", "", "post body")
	return cmd
}

var errEmptyPatch = errors.New("nothing to update: pass --name and/or --content")

func newUpdateCmd(a *app) *cobra.Command {
	var name, content string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch posts.Patch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("content") {
				patch.Content = &content
			}
			if patch.IsEmpty() {
				return errEmptyPatch
			}
			c, store := a.client()
			defer store.Close()
			p, err := c.UpdatePost(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printJSON(a.out, p)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, store := a.client()
			defer store.Close()
			res, err := c.DeletePost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(a.out, res)
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Print the cached post every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, store := a.client()
			defer store.Close()
			sub, err := c.Subscribe(ctx, posts.EndpointPost, args[0])
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			var tick <-chan time.Time
			if interval > 0 {
				t := time.NewTicker(interval)
				defer t.Stop()
				tick = t.C
			}
			for {
				select {
				case snap, ok := <-sub.Updates():
					if !ok {
						return nil
					}
					if err := printSnapshot(a.out, snap); err != nil {
						return err
					}
				case <-tick:
					store.Invalidate(posts.PostTag(args[0]))
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "refetch period; 0 only prints local changes")
	return cmd
}

func printSnapshot(w io.Writer, e cache.Entry) error {
	line := struct {
		Status   string   `json:"status"`
		Fetching bool     `json:"fetching,omitempty"`
		Stale    bool     `json:"stale,omitempty"`
		Data     any      `json:"data,omitempty"`
		Errors   []string `json:"errors,omitempty"`
	}{Status: e.Status.String(), Fetching: e.IsFetching, Stale: e.Stale, Data: e.Data}
	if e.Err != nil {
		line.Errors = e.Err.Messages()
	}
	b, err := json.Marshal(line)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
