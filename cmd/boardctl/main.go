// Command boardctl manages whiteboard boards from a terminal.
//
//	boardctl login -email ada@example.com -password ...
//	boardctl list [-q text] [-tag name]
//	boardctl export <id> | -all  [-o file]
//	boardctl import <file>
//	boardctl logout
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/config"
	"github.com/maplify-tech/whiteboard/pkg/boardfile"
	"github.com/maplify-tech/whiteboard/pkg/client"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
	"github.com/maplify-tech/whiteboard/pkg/thumbnail"
)

type app struct {
	api      *client.Client
	settings client.SettingsStore
	logger   *logrus.Logger
	out      io.Writer
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	global := flag.NewFlagSet("boardctl", flag.ExitOnError)
	settingsPath := global.String("settings", "", "settings file (default: user config dir)")
	apiURL := global.String("api", "", "API base URL (default: API_BASE_URL or stored value)")
	verbose := global.Bool("v", false, "verbose logging")
	global.Usage = usage
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := helpers.DiscardLogger()
	if *verbose {
		logger = helpers.NewLogger("boardctl", "development")
	}

	path := *settingsPath
	if path == "" {
		p, err := client.DefaultSettingsPath()
		if err != nil {
			fatal(err)
		}
		path = p
	}
	settings := client.NewFileSettings(path)
	stored, err := settings.Load()
	if err != nil {
		logger.WithError(err).Warn("settings unreadable; using defaults")
	}

	base := cfg.APIBaseURL
	if stored.APIBaseURL != "" {
		base = stored.APIBaseURL
	}
	if *apiURL != "" {
		base = *apiURL
	}

	a := &app{
		api:      client.New(base, client.WithToken(stored.Token)),
		settings: settings,
		logger:   logger,
		out:      os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "login":
		err = a.login(ctx, args, *apiURL)
	case "logout":
		err = a.logout(ctx)
	case "list":
		err = a.list(ctx, args)
	case "export":
		err = a.export(ctx, args)
	case "import":
		err = a.importFile(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func (a *app) login(ctx context.Context, args []string, apiURL string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("BOARDCTL_PASSWORD"), "account password (or BOARDCTL_PASSWORD)")
	register := fs.Bool("register", false, "create the account first")
	name := fs.String("name", "", "display name when registering")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("login: -email and -password are required")
	}

	auth := client.NewAuthStore(a.api, a.settings, a.logger)
	var err error
	if *register {
		err = auth.Register(ctx, *email, *password, *name)
	} else {
		err = auth.Login(ctx, *email, *password)
	}
	if err != nil {
		return err
	}
	if apiURL != "" {
		if err := a.settings.Save(withBaseURL(a.settings, apiURL)); err != nil {
			a.logger.WithError(err).Warn("persist API URL failed")
		}
	}
	_, _ = fmt.Fprintf(a.out, "signed in as %s\n", auth.State().User.Email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	client.NewAuthStore(a.api, a.settings, a.logger).Logout(ctx)
	_, _ = fmt.Fprintln(a.out, "signed out")
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	q := fs.String("q", "", "search by name or tag")
	tag := fs.String("tag", "", "only boards with this tag")
	_ = fs.Parse(args)

	boards, err := a.api.ListBoards(ctx, client.ListOptions{Query: *q, Tag: *tag})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTAGS\tUPDATED")
	for _, b := range boards {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", b.ID, b.Name, b.Tags, b.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	all := fs.Bool("all", false, "export every board into one backup file")
	out := fs.String("o", "", "output file (default: derived from the board name)")
	_ = fs.Parse(args)

	var (
		content []byte
		name    string
		err     error
	)
	switch {
	case *all:
		content, err = a.api.ExportAll(ctx)
		name = boardfile.BackupFileName(time.Now())
	case fs.NArg() == 1:
		id := fs.Arg(0)
		b, gerr := a.api.GetBoard(ctx, id)
		if gerr != nil {
			return gerr
		}
		content, err = a.api.ExportBoard(ctx, id)
		name = boardfile.FileName(b.Name)
	default:
		return errors.New("export: pass a board id or -all")
	}
	if err != nil {
		return err
	}
	if *out != "" {
		name = *out
	}
	if name == "-" {
		_, err = a.out.Write(content)
		return err
	}
	if err := os.WriteFile(name, content, 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "wrote %s\n", name)
	return nil
}

// importFile parses locally and creates each board, like the editor does.
func (a *app) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("import: pass one export file")
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	store := client.NewBoardStore(a.api, a.settings, thumbnail.NewGenerator(thumbnail.SolidRenderer{}, a.logger), a.logger)
	n, err := store.ImportFile(ctx, content)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "imported %d board(s)\n", n)
	return nil
}

func withBaseURL(store client.SettingsStore, url string) client.Settings {
	s, err := store.Load()
	if err != nil {
		s = client.DefaultSettings()
	}
	s.APIBaseURL = url
	return s
}

func usage() {
	_, _ = fmt.Fprintln(os.Stderr, `usage: boardctl [-api URL] [-settings FILE] [-v] <command> [args]

commands:
  login   -email E -password P [-register] [-name N]
  logout
  list    [-q text] [-tag name]
  export  <id> | -all  [-o file|-]
  import  <file>`)
}

func fatal(err error) {
	_, _ = fmt.Fprintln(os.Stderr, "boardctl:", err)
	os.Exit(1)
}
