// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// filterFlags are the catalogue filters shared by the songs commands.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Search query",
		},
		&cli.StringFlag{
			Name:    "genre",
			Aliases: []string{"g"},
			Usage:   "Genre filter",
			Value:   "all",
		},
		&cli.StringFlag{
			Name:    "mood",
			Aliases: []string{"m"},
			Usage:   "Mood filter",
			Value:   "all",
		},
		&cli.StringFlag{
			Name:    "duration",
			Aliases: []string{"d"},
			Usage:   "Duration bucket (Short, Mid, Long)",
			Value:   "all",
		},
		&cli.StringFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Language filter",
			Value:   "all",
		},
	}
}

// setupCommand handles setup operations for the database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the state database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles account operations
func authCommand(r *Runner) *cli.Command {
	credentials := []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Aliases:  []string{"u"},
			Usage:    "Account username",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Account password",
			Sources: cli.EnvVars("VIBE_PASSWORD"),
		},
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in and adopt your synced preferences",
				Flags:  credentials,
				Action: r.AuthLogin,
			},
			{
				Name:   "register",
				Usage:  "Create an account and log in",
				Flags:  credentials,
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Log out and clear the saved state",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the current session",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// songsCommand handles catalogue browsing and export
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "songs",
		Aliases: []string{"catalogue"},
		Usage:   "Browse and export the song catalogue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a page of songs",
				Flags: append(filterFlags(),
					&cli.IntFlag{
						Name:  "skip",
						Usage: "Number of songs to skip",
					},
					&cli.IntFlag{
						Name:  "more",
						Usage: "Additional pages to load after the first",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				),
				Action: r.SongsList,
			},
			{
				Name:  "export",
				Usage: "Crawl the catalogue and write it to files",
				Flags: append(filterFlags(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (json, csv, markdown, txt)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.StringFlag{
						Name:  "by",
						Usage: "Split the export into one selection per genre, mood, duration, or language",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent selections",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Stop each selection after this many pages (0 for no limit)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Page requests per second (defaults to export.rate_limit)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover art for markdown exports",
					},
				),
				Action: r.SongsExport,
			},
		},
	}
}

// likesCommand handles the liked set
func likesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "likes",
		Usage: "Manage liked songs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List liked songs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LikesList,
			},
			{
				Name:  "toggle",
				Usage: "Like a song, or unlike it when already liked",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.LikesToggle,
			},
		},
	}
}

// playCommand plays a song without the TUI
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a catalogue song until it ends or Ctrl-C",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Play,
	}
}

// lyricsCommand prints lyrics and background for a song
func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Show lyrics and background for a song, or the current song",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Artist name",
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Song title",
			},
			&cli.BoolFlag{
				Name:  "no-info",
				Usage: "Skip the background lookup",
			},
		},
		Action: r.Lyrics,
	}
}

// volumeCommand handles the persisted volume
func volumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "volume",
		Usage: "Show or change the playback volume",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Set the volume (0-1, or a percentage)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "level"},
				},
				Action: r.VolumeSet,
			},
			{
				Name:   "mute",
				Usage:  "Toggle mute",
				Action: r.VolumeMute,
			},
		},
		Action: r.VolumeShow,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.TUI,
	}
}
