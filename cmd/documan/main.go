// Command documan is a terminal client for the document-management API:
// OTP login, tag lookup, upload, search and download. Credentials persist
// across runs in the user's config directory, so login is a one-time step.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/docu-man/documan/internal/authflow"
	"github.com/docu-man/documan/internal/config"
	"github.com/docu-man/documan/internal/credstore"
	"github.com/docu-man/documan/internal/document"
	"github.com/docu-man/documan/internal/gateway"
	"github.com/docu-man/documan/internal/logging"
	"github.com/docu-man/documan/internal/notification"
	"github.com/docu-man/documan/internal/session"
)

const usageText = `Usage: documan <command> [flags]

Commands:
  login      perform OTP login (use -mobile to skip the prompt)
  logout     clear stored credentials
  whoami     print the logged-in user
  tags       list document tags (-term filters)
  upload     upload a document (-file, -major, -minor, -date, -remarks, -tags)
  search     search documents (-major, -minor, -from, -to, -tags, -query, -start, -length)
  download   download one document (-id, -o)
  zip        download several documents as a zip (-ids, -o)
  preview    print the preview URL for a document (-id)

Environment:
  DOCUMAN_API_BASE_URL    API endpoint (defaults to the hosted service)
  DOCUMAN_CREDENTIAL_DIR  where credentials are stored
  DOCUMAN_DEMO_LOGIN      allow the offline demo login pair (dev only)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "documan: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "login":
		err = app.login(ctx, args)
	case "logout":
		err = app.logout()
	case "whoami":
		err = app.whoami()
	case "tags":
		err = app.tags(ctx, args)
	case "upload":
		err = app.upload(ctx, args)
	case "search":
		err = app.search(ctx, args)
	case "download":
		err = app.download(ctx, args)
	case "zip":
		err = app.downloadZip(ctx, args)
	case "preview":
		err = app.preview(args)
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "documan: unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "documan: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg      config.Config
	creds    *credstore.Store
	sessions *session.Manager
	gw       *gateway.Gateway
	docs     *document.Service
	notifier notification.Notifier
	stdin    *bufio.Reader
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewText(cfg.LogLevel)
	creds := credstore.Open(cfg.CredentialDir, cfg.CredentialTTL, logger)
	sessions := session.NewManager(creds)
	sessions.Initialize()

	gw, err := gateway.New(cfg.APIBaseURL, cfg.HTTPTimeout, gateway.Options{
		Credentials: creds,
		Logger:      logger,
		OnSessionExpired: func() {
			_ = sessions.Logout()
			fmt.Fprintln(os.Stderr, "session expired, please log in again")
		},
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		creds:    creds,
		sessions: sessions,
		gw:       gw,
		docs:     document.NewService(gw, creds, logger),
		notifier: &printNotifier{out: os.Stderr},
		stdin:    bufio.NewReader(os.Stdin),
	}, nil
}

// printNotifier renders flow notices on the terminal, standing in for the
// toast popups of a graphical client.
type printNotifier struct {
	out io.Writer
}

func (n *printNotifier) Send(_ context.Context, m notification.Message) error {
	prefix := map[string]string{
		notification.KindInfo:    "•",
		notification.KindSuccess: "✓",
		notification.KindError:   "✗",
	}[m.Kind]
	if prefix == "" {
		prefix = "•"
	}
	_, err := fmt.Fprintf(n.out, "%s %s\n", prefix, m.Body)
	return err
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	mobile := fs.String("mobile", "", "registered 10-digit mobile number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if a.sessions.State().IsAuthenticated {
		return errors.New("already logged in, run `documan logout` first")
	}

	flow := authflow.New(a.gw, a.sessions, a.notifier, authflow.Options{
		DemoLogin: a.cfg.DemoLogin,
	})

	for flow.Step() == authflow.StepMobile {
		m := *mobile
		if m == "" {
			var err error
			if m, err = a.prompt("Mobile number: "); err != nil {
				return err
			}
		}
		if err := flow.SubmitMobile(ctx, m); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s\n", err)
			*mobile = "" // re-prompt instead of looping on a bad flag value
			continue
		}
		if flow.Step() == authflow.StepMobile {
			// Request failed with a notice already shown; give up rather
			// than hammering the endpoint.
			return errors.New("could not send OTP")
		}
	}

	for {
		code, err := a.prompt("OTP (6 digits, empty to resend): ")
		if err != nil {
			return err
		}
		if code == "" {
			if err := flow.Resend(ctx); err != nil {
				if errors.Is(err, authflow.ErrResendNotReady) {
					fmt.Fprintln(os.Stderr, "• resend available 30s after the last OTP")
					continue
				}
				return err
			}
			continue
		}
		ok, err := flow.SubmitOTP(ctx, code)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s\n", err)
			continue
		}
		if ok {
			return a.whoami()
		}
		// Rejected with a notice; stay on the OTP step and retry.
	}
}

func (a *app) logout() error {
	if err := a.sessions.Logout(); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) whoami() error {
	state := a.sessions.State()
	if !state.IsAuthenticated {
		return errors.New("not logged in")
	}
	fmt.Printf("%s (%s)\n", orUnknown(state.User.Name), state.User.Mobile)
	return nil
}

func (a *app) tags(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tags", flag.ExitOnError)
	term := fs.String("term", "", "filter tags containing this text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tags, err := a.docs.Tags(ctx, *term)
	if err != nil {
		return err
	}
	for _, t := range tags {
		fmt.Println(t.TagName)
	}
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "path of the file to upload")
	major := fs.String("major", "", "major head (e.g. Personal, Professional)")
	minor := fs.String("minor", "", "minor head (name or department)")
	date := fs.String("date", "", "document date (dd-mm-yyyy)")
	remarks := fs.String("remarks", "", "free-text remarks")
	tags := fs.String("tags", "", "comma-separated tag names")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	state := a.sessions.State()
	result, err := a.docs.Upload(ctx, document.UploadInput{
		FileName: filepath.Base(*file),
		File:     f,
		Metadata: document.Metadata{
			MajorHead:       *major,
			MinorHead:       *minor,
			DocumentDate:    *date,
			DocumentRemarks: *remarks,
			Tags:            splitTags(*tags),
			UserID:          state.User.Mobile,
		},
	})
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %s", result.FileName)
	if result.DocumentID != "" {
		fmt.Printf(" (id %s)", result.DocumentID)
	}
	fmt.Println()
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	major := fs.String("major", "", "major head filter")
	minor := fs.String("minor", "", "minor head filter")
	from := fs.String("from", "", "from date (dd-mm-yyyy)")
	to := fs.String("to", "", "to date (dd-mm-yyyy)")
	tags := fs.String("tags", "", "comma-separated tag filter (all must match)")
	query := fs.String("query", "", "free-text search")
	start := fs.Int("start", 0, "result offset")
	length := fs.Int("length", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.docs.Search(ctx, document.Filters{
		MajorHead: *major,
		MinorHead: *minor,
		FromDate:  *from,
		ToDate:    *to,
		Tags:      splitTags(*tags),
		Start:     *start,
		Length:    *length,
		Search:    document.Search{Value: *query},
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tMAJOR\tMINOR\tFILE\tTAGS")
	for _, e := range result.Entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID.String(), e.DocumentDate, e.MajorHead, e.MinorHead,
			e.FileName, strings.Join(e.Tags, ","))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d matching documents\n", len(result.Entries), result.RecordsTotal)
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	id := fs.String("id", "", "document id")
	out := fs.String("o", "", "output path (defaults to the document id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	path := *out
	if path == "" {
		path = *id
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.docs.Download(ctx, *id, f); err != nil {
		os.Remove(path)
		return err
	}
	fmt.Printf("saved %s\n", path)
	return nil
}

func (a *app) downloadZip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("zip", flag.ExitOnError)
	ids := fs.String("ids", "", "comma-separated document ids")
	out := fs.String("o", "documents.zip", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	idList := splitList(*ids)
	if len(idList) == 0 {
		return errors.New("-ids is required")
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := a.docs.DownloadZip(ctx, idList, f); err != nil {
		os.Remove(*out)
		return err
	}
	fmt.Printf("saved %s\n", *out)
	return nil
}

func (a *app) preview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	id := fs.String("id", "", "document id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}
	fmt.Println(a.docs.PreviewURL(*id))
	return nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		// EOF with no pending input means nobody is typing; callers must
		// abort rather than reprompt.
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func splitTags(s string) []document.Tag {
	var tags []document.Tag
	for _, name := range splitList(s) {
		tags = append(tags, document.Tag{TagName: name})
	}
	return tags
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
