// folioctl drives the portfolio admin from a terminal: sign in, list and edit
// collections from YAML files, stage publish toggles and update the profile.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khoahotran/personal-site/adapters/api"
	"github.com/khoahotran/personal-site/adapters/event"
	"github.com/khoahotran/personal-site/internal/config"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/manager"
	"github.com/khoahotran/personal-site/internal/session"
	"github.com/khoahotran/personal-site/pkg/apperror"
	"github.com/khoahotran/personal-site/pkg/logger"
)

const consoleID = "folioctl"

type app struct {
	cfg     config.Config
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	output  string
	verbose bool

	// tokens and apiOpts are overridden in tests.
	tokens  session.TokenStore
	apiOpts []api.Option

	con      *console.Console
	producer *event.KafkaProducerClient
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}
	a := &app{cfg: cfg, in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	err = execute(context.Background(), a, os.Args[1:])
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// execute runs one command line and prints the failure the way the console
// would show it.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(a.errOut, "Error:", apperror.UserMessage(err, "Command failed"))
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "folioctl",
		Short: "Manage the portfolio content from the terminal",
		Long: `folioctl talks to the portfolio REST API as the signed-in admin.

Records are read from YAML files whose keys match the console form fields.
Publish toggles are staged and sent together, as in the web console.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "yaml", "output format: yaml or json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log API traffic to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newListCmd(a),
		newFormCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newToggleCmd(a),
		newProfileCmd(a),
	)
	return root
}

// console builds the admin console once per invocation.
func (a *app) console(ctx context.Context) (*console.Console, error) {
	if a.con != nil {
		return a.con, nil
	}
	log := logger.NewNopLogger()
	if a.verbose {
		log = logger.NewZapLogger(a.cfg.App.Env)
	}

	tokens := a.tokens
	if tokens == nil {
		fs, err := session.NewFileStore(a.cfg.Session.TokenFile)
		if err != nil {
			return nil, err
		}
		tokens = fs
	}

	// Edits made here invalidate the site's cached views like console edits do.
	var publisher manager.ChangePublisher
	if len(a.cfg.Kafka.Brokers) > 0 {
		p, err := event.NewKafkaProducerClient(a.cfg, log)
		if err != nil {
			log.Warn("content changes will not be announced", zap.Error(err))
		} else {
			a.producer = p
			publisher = p
		}
	}

	con, err := console.New(ctx, consoleID, console.Deps{
		Config:    a.cfg,
		Tokens:    tokens,
		Publisher: publisher,
		Logger:    log,
		APIOpts:   a.apiOpts,
	})
	if err != nil {
		return nil, err
	}
	a.con = con
	return con, nil
}

// admin returns a console with a resolved, signed-in session.
func (a *app) admin(ctx context.Context) (*console.Console, error) {
	con, err := a.console(ctx)
	if err != nil {
		return nil, err
	}
	state, err := con.Session.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if state != session.StateAuthenticated {
		return nil, apperror.NewAppError(apperror.ErrUnauthorized, "Login required", "run folioctl login first", nil)
	}
	return con, nil
}

// run executes fn against the signed-in console and prints its notices.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, con *console.Console) error) error {
	ctx := commandContext(cmd)
	con, err := a.admin(ctx)
	if err != nil {
		return err
	}
	defer a.flush()
	return fn(ctx, con)
}

func (a *app) flush() {
	if a.con == nil {
		return
	}
	for _, n := range a.con.Inbox.Drain() {
		fmt.Fprintf(a.errOut, "[%s] %s\n", n.Level, n.Message)
	}
}

func (a *app) close() {
	if a.con != nil {
		a.con.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
}
