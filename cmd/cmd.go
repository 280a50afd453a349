// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the ingestion and admin HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override server.host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Action: r.Setup,
	}
}

// migrateCommand handles schema migrations of the local database
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage local database migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply pending migrations",
				Action: r.MigrateUp,
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: r.MigrateDown,
			},
		},
	}
}

// adminCommand handles the admin registry and operator deletions
func adminCommand(r *Runner) *cli.Command {
	userArg := []cli.Argument{&cli.StringArg{Name: "user_id"}}

	return &cli.Command{
		Name:  "admin",
		Usage: "Manage admins and delete users",
		Commands: []*cli.Command{
			{
				Name:      "grant",
				Usage:     "Grant admin privileges to a user",
				Arguments: userArg,
				Action:    r.AdminGrant,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke admin privileges from a user",
				Arguments: userArg,
				Action:    r.AdminRevoke,
			},
			{
				Name:  "list",
				Usage: "List admins",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AdminList,
			},
			{
				Name:      "delete-user",
				Usage:     "Delete a user's rows and identity account with operator credentials",
				Arguments: userArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AdminDeleteUser,
			},
		},
	}
}

// ingestCommand compiles and records targets from the command line
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Upload reference images, compile .mind descriptors and record targets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Image file path or http(s) URL",
			},
			&cli.StringFlag{
				Name:  "video",
				Usage: "Video URL linked to the target",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Owning user id (default for manifest rows without user_id)",
			},
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "CSV manifest with image,video_url[,user_id] columns",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers for manifest ingestion",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Manifest ingestions started per second",
				Value: 2,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a per-row report to this path",
			},
			&cli.StringFlag{
				Name:  "report-format",
				Usage: "Report format: csv or json",
				Value: "csv",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Ingest,
	}
}

// targetsCommand inspects the catalog
func targetsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "targets",
		Usage: "Inspect recorded targets",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the most recent targets",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of targets to return",
						Value: 50,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table, text, csv or json",
						Value:   "table",
					},
				},
				Action: r.TargetsList,
			},
		},
	}
}

// tokenCommand mints development tokens for the local backend
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a local access token (local backend only)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sub",
				Usage: "Existing account id",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Email for a new account when --sub is omitted",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: time.Hour,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Token,
	}
}
