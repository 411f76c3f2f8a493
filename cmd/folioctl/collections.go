package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/domain"
	"github.com/khoahotran/personal-site/internal/domain/contact"
	"github.com/khoahotran/personal-site/internal/domain/experience"
	"github.com/khoahotran/personal-site/internal/domain/post"
	"github.com/khoahotran/personal-site/internal/domain/project"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/pkg/apperror"
)

// collection is one manager seen through the CLI, with its record and form
// types erased.
type collection struct {
	list   func(ctx context.Context, con *console.Console, params map[string]string) (any, error)
	form   func(ctx context.Context, con *console.Console, id string) (any, error)
	save   func(ctx context.Context, con *console.Console, id string, doc []byte, files []api.File, progress api.ProgressFunc) error
	remove func(ctx context.Context, con *console.Console, id string, confirm manager.Confirmer) error
	toggle func(ctx context.Context, con *console.Console, ids []string, commit bool) (map[string]bool, error)
}

var collections = map[string]collection{
	domain.CollectionExperiences: bind(func(c *console.Console) *manager.Manager[experience.Experience, experience.Form] {
		return c.Experiences
	}),
	domain.CollectionProjects: bind(func(c *console.Console) *manager.Manager[project.Project, project.Form] {
		return c.Projects
	}),
	domain.CollectionPosts: bind(func(c *console.Console) *manager.Manager[post.Post, post.Form] {
		return c.Posts
	}),
	domain.CollectionContacts: bind(func(c *console.Console) *manager.Manager[contact.Contact, contact.Form] {
		return c.Contacts
	}),
}

func bind[T domain.Record, F any](pick func(*console.Console) *manager.Manager[T, F]) collection {
	loaded := func(ctx context.Context, con *console.Console) (*manager.Manager[T, F], error) {
		m := pick(con)
		if err := m.Load(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}
	// open starts the create form for an empty id, else the edit form of id.
	open := func(m *manager.Manager[T, F], id string) (F, error) {
		if id == "" {
			return m.StartCreate()
		}
		return m.StartEdit(id)
	}

	return collection{
		list: func(ctx context.Context, con *console.Console, params map[string]string) (any, error) {
			m := pick(con)
			for k, v := range params {
				m.SetParam(k, v)
			}
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			return m.View().Items, nil
		},
		form: func(ctx context.Context, con *console.Console, id string) (any, error) {
			m, err := loaded(ctx, con)
			if err != nil {
				return nil, err
			}
			f, err := open(m, id)
			m.CancelForm()
			return f, err
		},
		save: func(ctx context.Context, con *console.Console, id string, doc []byte, files []api.File, progress api.ProgressFunc) error {
			m, err := loaded(ctx, con)
			if err != nil {
				return err
			}
			f, err := open(m, id)
			if err != nil {
				return err
			}
			// Keys in the file override the form defaults or the record's current values.
			if err := yaml.Unmarshal(doc, &f); err != nil {
				m.CancelForm()
				return apperror.NewInvalidInput("Invalid record file: "+err.Error(), err)
			}
			return m.Submit(ctx, f, files, progress)
		},
		remove: func(ctx context.Context, con *console.Console, id string, confirm manager.Confirmer) error {
			m, err := loaded(ctx, con)
			if err != nil {
				return err
			}
			if _, ok := m.Find(id); !ok {
				return apperror.NewNotFound(m.Collection(), id)
			}
			return m.Delete(ctx, id, confirm)
		},
		toggle: func(ctx context.Context, con *console.Console, ids []string, commit bool) (map[string]bool, error) {
			m, err := loaded(ctx, con)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if _, err := m.TogglePublishStaged(id); err != nil {
					m.DiscardStaged()
					return nil, err
				}
			}
			out := make(map[string]bool, len(ids))
			for _, id := range ids {
				out[id], _ = m.EffectivePublished(id)
			}
			if !commit {
				m.DiscardStaged()
				return out, nil
			}
			return out, m.CommitStaged(ctx)
		},
	}
}

func lookup(name string) (collection, error) {
	c, ok := collections[name]
	if !ok {
		return collection{}, apperror.NewInvalidInput(fmt.Sprintf("Unknown collection %q, expected one of %s", name, strings.Join(collectionNames(), ", ")), nil)
	}
	return c, nil
}

func collectionNames() []string {
	names := make([]string, 0, len(collections))
	for n := range collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newListCmd(a *app) *cobra.Command {
	var lastDays int
	cmd := &cobra.Command{
		Use:       "list <collection>",
		Short:     "List a collection with its effective publish state",
		Args:      cobra.ExactArgs(1),
		ValidArgs: collectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lookup(args[0])
			if err != nil {
				return err
			}
			params := map[string]string{}
			if lastDays > 0 {
				params["lastDays"] = strconv.Itoa(lastDays)
			}
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				rows, err := c.list(ctx, con, params)
				if err != nil {
					return err
				}
				return a.print(rows)
			})
		},
	}
	cmd.Flags().IntVar(&lastDays, "last-days", 0, "contacts only: messages from the last N days")
	return cmd
}

func newFormCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "form <collection> [id]",
		Short: "Print a blank form, or the edit form of a record, as a starting YAML file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lookup(args[0])
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				f, err := c.form(ctx, con, id)
				if err != nil {
					return err
				}
				return a.printForm(f)
			})
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var file string
	var attach []string
	cmd := &cobra.Command{
		Use:   "create <collection> -f record.yaml",
		Short: "Create a record from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.save(cmd, args[0], "", file, attach)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML record file")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "upload a file as field=path, repeatable")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var file string
	var attach []string
	cmd := &cobra.Command{
		Use:   "edit <collection> <id> -f changes.yaml",
		Short: "Update a record; keys missing from the file keep their current values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.save(cmd, args[0], args[1], file, attach)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the fields to change")
	cmd.Flags().StringArrayVar(&attach, "attach", nil, "upload a file as field=path, repeatable")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) save(cmd *cobra.Command, name, id, file string, attach []string) error {
	c, err := lookup(name)
	if err != nil {
		return err
	}
	doc, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	files, closeFiles, err := openAttachments(attach)
	if err != nil {
		return err
	}
	defer closeFiles()

	return a.run(cmd, func(ctx context.Context, con *console.Console) error {
		var progress api.ProgressFunc
		if len(files) > 0 {
			progress = func(p int) { fmt.Fprintf(a.errOut, "\ruploading %3d%%", p) }
			defer fmt.Fprintln(a.errOut)
		}
		return c.save(ctx, con, id, doc, files, progress)
	})
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lookup(args[0])
			if err != nil {
				return err
			}
			var confirm manager.Confirmer = manager.Confirmed(true)
			if !yes {
				confirm = a.prompt(cmd)
			}
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				return c.remove(ctx, con, args[1], confirm)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// prompt asks on the terminal; anything but y or yes declines.
func (a *app) prompt(cmd *cobra.Command) manager.Confirmer {
	return manager.ConfirmFunc(func(_ context.Context, p manager.Prompt) bool {
		fmt.Fprintf(a.errOut, "%s %s [y/N] ", p.Title, p.Description)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func newToggleCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "toggle <collection> <id>...",
		Short: "Flip the published flag of records and save them together",
		Long: `Stages a publish toggle for every id, then sends them in one commit.
Naming an id twice cancels its toggle. With --dry-run the resulting
states are printed and nothing is sent.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := lookup(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				states, err := c.toggle(ctx, con, args[1:], !dryRun)
				if states != nil {
					if perr := a.print(states); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the staged states without saving")
	return cmd
}

// openAttachments opens field=path pairs as upload parts.
func openAttachments(pairs []string) ([]api.File, func(), error) {
	var (
		files   []api.File
		handles []*os.File
	)
	closeAll := func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}
	for _, pair := range pairs {
		field, path, ok := strings.Cut(pair, "=")
		if !ok || field == "" || path == "" {
			closeAll()
			return nil, func() {}, apperror.NewInvalidInput(fmt.Sprintf("Invalid --attach %q, expected field=path", pair), nil)
		}
		h, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		handles = append(handles, h)
		files = append(files, api.File{Field: field, Name: filepath.Base(path), Content: h})
	}
	return files, closeAll, nil
}
