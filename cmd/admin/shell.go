package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"portfolio/internal/gallery"
	"portfolio/internal/models"
)

// dashboard is the part of gallery.AdminView the shell drives.
type dashboard interface {
	Mode() gallery.Mode
	AuthError() string
	SignIn(ctx context.Context, email, password string) error
	Photos() []models.PhotoRecord
	Stats() gallery.Stats
	Upload(ctx context.Context, files []gallery.File, progress gallery.Progress) ([]gallery.UploadResult, error)
	Update(ctx context.Context, id string, upd models.PhotoUpdate) error
	Delete(ctx context.Context, id string) error
	Watermark(ctx context.Context, id string) (models.PhotoRecord, error)
	Preview(ctx context.Context, id string) ([]byte, error)
}

func newShellCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive admin dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			view := gallery.NewAdminView(gallery.AdminDeps{
				Auth:    c.Auth(),
				Docs:    c.Documents(),
				Objects: c.Objects(),
				Fetcher: c,
				Log:     opts.logger(),
				Label:   opts.label,
			}, gallery.WithErrorSink(func(err error) {
				fmt.Fprintln(cmd.ErrOrStderr(), "sync error:", err)
			}))
			if err := view.Open(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "could not load photos:", err)
			}
			defer view.Close()

			sh := &shell{
				d:     view,
				in:    bufio.NewScanner(cmd.InOrStdin()),
				out:   cmd.OutOrStdout(),
				email: opts.email,
			}
			sh.run(cmd.Context())
			return nil
		},
	}
}

type shell struct {
	d     dashboard
	in    *bufio.Scanner
	out   io.Writer
	email string
}

func (s *shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *shell) prompt() string {
	if s.d.Mode() == gallery.ModeManage {
		return "portfolio (manage)> "
	}
	return "portfolio (login)> "
}

func (s *shell) readLine(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// run reads commands until EOF or quit. Command errors are printed and the
// loop carries on.
func (s *shell) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		line, ok := s.readLine(s.prompt())
		if !ok {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if parts[0] == "quit" || parts[0] == "exit" {
			s.println("Bye!")
			return
		}
		if err := s.exec(ctx, parts[0], parts[1:]); err != nil {
			s.println("error:", err)
		}
	}
}

func (s *shell) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		if s.d.Mode() == gallery.ModeManage {
			s.println("commands: list, filter <category|all> [term], upload <file>..., edit <id> <field> <value>,")
			s.println("          watermark <id>, delete <id>, save <id> <file>, stats, quit")
		} else {
			s.println("commands: login [email], list, stats, quit")
		}
		return nil
	case "login":
		return s.login(ctx, args)
	case "l", "list":
		s.table(s.d.Photos())
		return nil
	case "filter":
		return s.filter(args)
	case "stats":
		st := s.d.Stats()
		s.println(fmt.Sprintf("total: %d  watermarked: %d", st.Total, st.Watermarked))
		return nil
	case "upload":
		return s.upload(ctx, args)
	case "edit":
		return s.edit(ctx, args)
	case "watermark":
		if len(args) != 1 {
			return errors.New("usage: watermark <id>")
		}
		rec, err := s.d.Watermark(ctx, args[0])
		if err != nil {
			return err
		}
		s.println("watermarked", rec.ID)
		return nil
	case "delete", "rm":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		if err := s.d.Delete(ctx, args[0]); err != nil {
			return err
		}
		s.println("deleted", args[0])
		return nil
	case "save":
		return s.save(ctx, args)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (s *shell) login(ctx context.Context, args []string) error {
	email := s.email
	if len(args) > 0 {
		email = args[0]
	}
	if email == "" {
		var ok bool
		if email, ok = s.readLine("email: "); !ok {
			return io.ErrUnexpectedEOF
		}
	}
	password, ok := s.readLine("password: ")
	if !ok {
		return io.ErrUnexpectedEOF
	}
	if err := s.d.SignIn(ctx, email, password); err != nil {
		return errors.New(s.d.AuthError())
	}
	s.println("signed in as", email)
	return nil
}

func (s *shell) filter(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: filter <category|all> [term]")
	}
	q := gallery.Query{Category: models.Category(args[0]), Search: strings.Join(args[1:], " ")}
	if q.Category != models.CategoryAll && !q.Category.Valid() {
		return fmt.Errorf("unknown category %q", args[0])
	}
	s.table(gallery.Filter(s.d.Photos(), q))
	return nil
}

func (s *shell) upload(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: upload <file>...")
	}
	files := make([]gallery.File, 0, len(args))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, gallery.File{Name: filepath.Base(p), Data: data})
	}

	results, err := s.d.Upload(ctx, files, func(done, total int) {
		s.println(fmt.Sprintf("uploading %d/%d", done, total))
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.Err != nil && r.TempID != "":
			s.println(fmt.Sprintf("%s: kept locally as %s (%v)", r.Name, r.TempID, r.Err))
		case r.Err != nil:
			s.println(fmt.Sprintf("%s: skipped (%v)", r.Name, r.Err))
		default:
			s.println(fmt.Sprintf("%s: uploaded as %s", r.Name, r.ID))
		}
	}
	return nil
}

func parseEdit(field, value string) (models.PhotoUpdate, error) {
	var upd models.PhotoUpdate
	switch field {
	case "title":
		upd.Title = &value
	case "description":
		upd.Description = &value
	case "category":
		c := models.Category(value)
		if !c.Valid() {
			return upd, fmt.Errorf("unknown category %q", value)
		}
		upd.Category = &c
	case "frame", "frameSize":
		f := models.FrameSize(value)
		if !f.Valid() {
			return upd, fmt.Errorf("unknown frame size %q", value)
		}
		upd.FrameSize = &f
	default:
		return upd, fmt.Errorf("unknown field %q", field)
	}
	return upd, nil
}

func (s *shell) edit(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: edit <id> <title|category|description|frame> <value>")
	}
	upd, err := parseEdit(args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	if err := s.d.Update(ctx, args[0], upd); err != nil {
		return err
	}
	s.println("updated", args[0])
	return nil
}

func (s *shell) save(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: save <id> <file>")
	}
	data, err := s.d.Preview(ctx, args[0])
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		return err
	}
	s.println(fmt.Sprintf("saved %d bytes to %s", len(data), args[1]))
	return nil
}

func (s *shell) table(records []models.PhotoRecord) {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tFRAME\tWATERMARK\tSTATE")
	for _, r := range records {
		state := "synced"
		if r.Pending() {
			state = "local"
		}
		wm := ""
		if r.Watermarked {
			wm = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Category, r.FrameSize, wm, state)
	}
	tw.Flush()
}
