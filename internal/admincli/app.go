// Package admincli implements the operator command line for a running
// sharegate server. It talks to the /admin HTTP API; share passwords are
// read from the terminal, never from argv.
package admincli

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/sharegate/internal/server/models"
	"golang.org/x/term"
)

const usage = `usage: sharegate-admin [-s server] <command> [arguments]

commands:
  register <path>                      register a file on the server's disk
  files                                list registered files
  del-file <id>                        delete a file (cascades to its shares)
  share [-expires d] [-max n] [-password] <file-id>
                                       create a share for a registered file
  shares                               list shares
  del-share <slug>                     delete a share
`

// App is the CLI entry point, bound to one server base URL.
type App struct {
	baseURL string
	client  *http.Client
	out     io.Writer

	// readPassword is a seam for tests; defaults to a hidden terminal read.
	readPassword func() (string, error)
}

func NewApp(baseURL string, out io.Writer) *App {
	return &App{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		out:     out,
		readPassword: func() (string, error) {
			fmt.Fprint(os.Stderr, "Share password: ")
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			return string(b), err
		},
	}
}

// Run dispatches a single command. args excludes the program name and the
// global -s flag.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.registerFile(rest)
	case "files":
		return a.listFiles()
	case "del-file":
		return a.deleteFile(rest)
	case "share":
		return a.createShare(rest)
	case "shares":
		return a.listShares()
	case "del-share":
		return a.deleteShare(rest)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (a *App) registerFile(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("register expects exactly one path")
	}
	var entry models.FileEntry
	if err := a.post("/admin/files", map[string]string{"abs_path": args[0]}, &entry); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  %s  %d bytes\n", entry.ID, entry.AbsPath, entry.SizeBytes)
	return nil
}

func (a *App) listFiles() error {
	var list []models.FileEntry
	if err := a.get("/admin/files", &list); err != nil {
		return err
	}
	for _, f := range list {
		fmt.Fprintf(a.out, "%s  %s  %d bytes  %s\n", f.ID, f.AbsPath, f.SizeBytes, f.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *App) deleteFile(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("del-file expects exactly one id")
	}
	return a.delete("/admin/files/" + args[0])
}

func (a *App) createShare(args []string) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	expires := fs.Duration("expires", 0, "expiry relative to now (e.g. 24h); 0 means never")
	maxDownloads := fs.Int64("max", 0, "maximum downloads; 0 means unlimited")
	withPassword := fs.Bool("password", false, "prompt for a share password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("share expects exactly one file id")
	}

	req := map[string]any{"file_id": fs.Arg(0)}
	if *expires > 0 {
		req["expires_at"] = time.Now().UTC().Add(*expires)
	}
	if *maxDownloads > 0 {
		req["max_downloads"] = *maxDownloads
	}
	if *withPassword {
		pw, err := a.readPassword()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		req["password"] = pw
	}

	var share models.Share
	if err := a.post("/admin/shares", req, &share); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\n", share.Slug)
	return nil
}

func (a *App) listShares() error {
	var list []models.Share
	if err := a.get("/admin/shares", &list); err != nil {
		return err
	}
	for _, s := range list {
		quota := "unlimited"
		if s.MaxDownloads != nil {
			quota = fmt.Sprintf("%d/%d", s.DlCount, *s.MaxDownloads)
		}
		expiry := "never"
		if s.ExpiresAt != nil {
			expiry = s.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Fprintf(a.out, "%s  file=%s  downloads=%s  expires=%s\n", s.Slug, s.FileID, quota, expiry)
	}
	return nil
}

func (a *App) deleteShare(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("del-share expects exactly one slug")
	}
	return a.delete("/admin/shares/" + args[0])
}

// --- transport helpers ---

func (a *App) get(path string, v any) error {
	resp, err := a.client.Get(a.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, v)
}

func (a *App) post(path string, body any, v any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := a.client.Post(a.baseURL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, v)
}

func (a *App) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, nil)
}

func decodeResponse(resp *http.Response, v any) error {
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("server: %s (%s)", e.Error, resp.Status)
		}
		return fmt.Errorf("server: %s", resp.Status)
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
