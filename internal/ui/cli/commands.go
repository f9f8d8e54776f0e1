package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	coreapp "implementor/internal/core/app"
	domainerrors "implementor/internal/core/errors"
	"implementor/internal/core/ports"
	"implementor/internal/engine/source"
	"implementor/internal/shared/util"
	"implementor/internal/ui/picker"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type implementOutput struct {
	Identifier string                     `json:"identifier"`
	Methods    []source.MethodSignature   `json:"methods"`
	Stubs      string                     `json:"stubs"`
	Unresolved []ports.UnresolvedAncestor `json:"unresolved,omitempty"`
}

// readRequest takes the unit from --file, or from stdin when no file is set.
func readRequest(c *cli.Context) (ports.OutstandingRequest, error) {
	path := strings.TrimSpace(c.String("file"))
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return ports.OutstandingRequest{}, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeNotFound, "unable to read source file"),
				domainerrors.CtxPath, path)
		}
		return ports.OutstandingRequest{Path: path, Text: string(content)}, nil
	}
	content, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return ports.OutstandingRequest{}, fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return ports.OutstandingRequest{}, domainerrors.New(domainerrors.CodeValidationError, "no source given: pass --file or pipe the class on stdin")
	}
	return ports.OutstandingRequest{Text: string(content)}, nil
}

func reportUnresolved(c *cli.Context, unresolved []ports.UnresolvedAncestor) {
	for _, u := range unresolved {
		fmt.Fprintf(c.App.ErrWriter, "warning: ancestor %s not found: %s\n", u.Identifier, u.Reason)
	}
}

func implementAction(c *cli.Context) error {
	if c.Bool("write") && strings.TrimSpace(c.String("file")) == "" {
		return domainerrors.New(domainerrors.CodeValidationError, "--write requires --file")
	}
	if c.Bool("all") && (c.Bool("pick") || len(c.StringSlice("method")) > 0) {
		return domainerrors.New(domainerrors.CodeValidationError, "--all cannot be combined with --pick or --method")
	}
	if c.Bool("pick") && len(c.StringSlice("method")) > 0 {
		return domainerrors.New(domainerrors.CodeValidationError, "--pick cannot be combined with --method")
	}

	req, err := readRequest(c)
	if err != nil {
		return err
	}
	rt, err := loadRuntime(c, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(c.Context)
	defer stop()

	res, err := rt.app.Outstanding(ctx, req)
	if err != nil {
		return err
	}
	reportUnresolved(c, res.Unresolved)
	if len(res.Declarations) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "nothing to implement")
		return nil
	}

	var selected []source.MethodSignature
	switch {
	case c.Bool("pick"):
		selected, err = picker.Pick(res.Entries, picker.Options{Output: c.App.ErrWriter, AltScreen: true})
		if errors.Is(err, picker.ErrCanceled) {
			fmt.Fprintln(c.App.ErrWriter, "canceled")
			return nil
		}
		if err != nil {
			return err
		}
		selected = dedupeByName(selected)
	default:
		selected, err = coreapp.SelectMethods(res.Declarations, util.UniqueFold(c.StringSlice("method")))
		if err != nil {
			return err
		}
	}

	stubs := rt.app.Stubs(selected)
	if c.Bool("write") || c.IsSet("line") {
		updated, err := coreapp.InsertStubs(req.Text, c.Int("line"), stubs)
		if err != nil {
			return err
		}
		if c.Bool("write") {
			perm := os.FileMode(0o644)
			if info, err := os.Stat(req.Path); err == nil {
				perm = info.Mode().Perm()
			}
			if err := util.WriteFileAtomic(req.Path, []byte(updated), perm); err != nil {
				return fmt.Errorf("write %s: %w", req.Path, err)
			}
			fmt.Fprintf(c.App.ErrWriter, "implemented %d method(s) in %s\n", len(selected), req.Path)
			return nil
		}
		stubs = updated
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, implementOutput{
			Identifier: res.Identifier,
			Methods:    selected,
			Stubs:      stubs,
			Unresolved: res.Unresolved,
		})
	}
	_, err = io.WriteString(c.App.Writer, stubs)
	return err
}

// dedupeByName keeps one declaration per method name when the same method
// was picked from two ancestors.
func dedupeByName(decls []source.MethodSignature) []source.MethodSignature {
	seen := make(map[string]bool, len(decls))
	out := make([]source.MethodSignature, 0, len(decls))
	for _, d := range decls {
		key := strings.ToLower(d.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func listAction(c *cli.Context) error {
	req, err := readRequest(c)
	if err != nil {
		return err
	}
	rt, err := loadRuntime(c, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.app.Outstanding(c.Context, req)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, res)
	}

	reportUnresolved(c, res.Unresolved)
	for _, e := range res.Entries {
		fmt.Fprintln(c.App.Writer, e.Identifier)
		for _, m := range e.Methods {
			fmt.Fprintf(c.App.Writer, "  %s\n", m.Declaration)
		}
	}
	return nil
}

func refreshAction(c *cli.Context) error {
	rt, err := loadRuntime(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.app.RefreshAutoloads(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, res)
	}
	fmt.Fprintf(c.App.Writer, "autoload table refreshed from %s: %d roots, %d classmap entries, %d packages\n",
		res.Source, res.Roots, res.Classmap, res.Packages)
	for _, w := range res.Warnings {
		fmt.Fprintf(c.App.ErrWriter, "warning: %s\n", w)
	}
	return nil
}

func watchAction(c *cli.Context) error {
	rt, err := loadRuntime(c, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signalContext(c.Context)
	defer stop()

	if _, err := rt.app.RefreshAutoloads(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rt.app.Watch(gctx, rt.configPath)
	})
	if rt.app.Config.Observability.Enabled {
		server := NewObservabilityServer(rt.app.Config.Observability.Address, coreapp.NewHealthService(rt.app))
		g.Go(func() error {
			return server.Serve(gctx)
		})
	}
	return g.Wait()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
