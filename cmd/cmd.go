// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, yaml, csv, markdown)",
		Value:   value,
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write output to this file instead of stdout",
	}
}

// setupCommand handles setup operations for the database and file cache.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database, run migrations and create the poster cache",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "List applied migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// syncCommand handles catalog and favorites synchronization.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize the local catalog with Anilibria",
		Commands: []*cli.Command{
			{
				Name:  "releases",
				Usage: "Fetch the catalog, update the cache and record changes",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the cycle result as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SyncReleases,
			},
			{
				Name:  "favorites",
				Usage: "Synchronize the favorites of the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
				},
				Action: r.SyncFavorites,
			},
			{
				Name:  "watch",
				Usage: "Run synchronization cycles on an interval until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Time between cycles (default from config)",
					},
					&cli.BoolFlag{
						Name:  "favorites",
						Usage: "Also synchronize favorites after each cycle (default from config)",
					},
				},
				Action: r.SyncWatch,
			},
		},
	}
}

// changesCommand inspects and acknowledges the change ledger.
func changesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "changes",
		Aliases: []string{"ch"},
		Usage:   "Inspect and acknowledge pending catalog changes",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show pending changes",
				Flags:  []cli.Flag{formatFlag("text"), outputFlag()},
				Action: r.ChangesShow,
			},
			{
				Name:  "ack",
				Usage: "Mark pending changes as seen",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Clear the whole ledger",
					},
					&cli.BoolFlag{
						Name:  "releases",
						Usage: "Clear the new release list",
					},
					&cli.Int64Flag{
						Name:  "release",
						Usage: "Clear every entry of one release",
					},
					&cli.Int64Flag{
						Name:  "episodes",
						Usage: "Clear the new episode marker of one release",
					},
					&cli.Int64Flag{
						Name:  "torrents",
						Usage: "Clear the new torrent marker of one release",
					},
					&cli.Int64Flag{
						Name:  "torrent-series",
						Usage: "Clear the updated torrent markers of one release",
					},
				},
				Action: r.ChangesAck,
			},
		},
	}
}

// releasesCommand queries the cached catalog.
func releasesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "releases",
		Aliases: []string{"rel"},
		Usage:   "Query the cached catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Filter, sort and page cached releases",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Substring of the title or any alternate name",
					},
					&cli.BoolFlag{
						Name:  "fuzzy",
						Usage: "Match --title as a fuzzy subsequence of any name",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Substring of the description",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Substring of the release type",
					},
					&cli.StringFlag{
						Name:  "genres",
						Usage: "Comma separated genres",
					},
					&cli.BoolFlag{
						Name:  "genres-all",
						Usage: "Require every listed genre",
					},
					&cli.StringFlag{
						Name:  "voices",
						Usage: "Comma separated voice actors",
					},
					&cli.BoolFlag{
						Name:  "voices-all",
						Usage: "Require every listed voice actor",
					},
					&cli.StringFlag{
						Name:  "years",
						Usage: "Comma separated years",
					},
					&cli.StringFlag{
						Name:  "statuses",
						Usage: "Comma separated statuses",
					},
					&cli.StringFlag{
						Name:  "seasons",
						Usage: "Comma separated seasons",
					},
					&cli.StringFlag{
						Name:  "section",
						Usage: "Section (all, favorites, new, episodes, torrents)",
						Value: "all",
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "Sort field (timestamp, name, year, rating, status, original, season)",
						Value: "timestamp",
					},
					&cli.BoolFlag{
						Name:  "desc",
						Usage: "Sort in descending order",
					},
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Usage:   "Page number",
						Value:   1,
					},
					formatFlag("text"),
					outputFlag(),
				},
				Action: r.ReleasesList,
			},
			{
				Name:  "search",
				Usage: "Fuzzy search release names",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ReleasesSearch,
			},
			{
				Name:  "show",
				Usage: "Show one cached release",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "id",
						Usage:    "Release ID",
						Required: true,
					},
					formatFlag("text"),
				},
				Action: r.ReleasesShow,
			},
		},
	}
}

// postersCommand manages the poster file cache.
func postersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "posters",
		Usage: "Manage cached poster images",
		Commands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Download posters of cached releases into the file cache",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent downloads (default from config)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Downloads per second",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Download posters that are already cached",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the result as JSON",
					},
				},
				Action: r.PostersFetch,
			},
			{
				Name:   "status",
				Usage:  "Show how many posters are cached",
				Action: r.PostersStatus,
			},
		},
	}
}

// browseCommand launches the interactive release browser.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive release browser",
		Action:  r.Browse,
	}
}
