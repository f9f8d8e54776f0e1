package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const versionString = "1.0.0"

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	fileFlag := &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "PHP source file (reads stdin when omitted)",
	}
	jsonFlag := &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output as JSON",
	}

	return &cli.App{
		Name:                   "implementor",
		Usage:                  "Generate stubs for the methods a PHP class inherits but does not implement",
		Version:                versionString,
		UseShortOptionHandling: true,
		Reader:                 stdin,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: <workspace>/implementor.toml)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root (overrides config and detection)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Before: func(c *cli.Context) error {
			configureLogging(c.App.ErrWriter, c.Bool("verbose"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "implement",
				Aliases: []string{"i"},
				Usage:   "Render stubs for outstanding methods",
				Flags: []cli.Flag{
					fileFlag,
					&cli.IntFlag{
						Name:    "line",
						Aliases: []string{"l"},
						Usage:   "Insert after this 1-based line (0 = before the class's closing brace) and print the whole file",
					},
					&cli.StringSliceFlag{
						Name:    "method",
						Aliases: []string{"m"},
						Usage:   "Implement only the named methods (repeatable)",
					},
					&cli.BoolFlag{
						Name:    "all",
						Aliases: []string{"a"},
						Usage:   "Implement every outstanding method (default)",
					},
					&cli.BoolFlag{
						Name:    "pick",
						Aliases: []string{"p"},
						Usage:   "Choose methods interactively",
					},
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "Insert the stubs into --file instead of printing",
					},
					jsonFlag,
				},
				Action: implementAction,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List outstanding methods grouped by ancestor",
				Flags:   []cli.Flag{fileFlag, jsonFlag},
				Action:  listAction,
			},
			{
				Name:   "refresh",
				Usage:  "Rebuild the autoload table from composer manifests and config",
				Flags:  []cli.Flag{jsonFlag},
				Action: refreshAction,
			},
			{
				Name:   "watch",
				Usage:  "Keep the autoload table current and serve /metrics and /health",
				Action: watchAction,
			},
			{
				Name:  "version",
				Usage: "Print version and exit",
				Action: func(c *cli.Context) error {
					_, err := io.WriteString(c.App.Writer, "implementor v"+versionString+"\n")
					return err
				},
			},
		},
	}
}
