package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	PersistentPreRunE:     func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err //nolint:wrapcheck
		}

		page = page.WithSection("Files", "Configuration is read from newsreader.yml in the user config directory, "+
			"or from the directory named by NEWSREADER_CONFIG_HOME. Downloaded audio is kept in the user cache directory.")
		page = page.WithSection("Environment", "Every setting can be overridden with a NEWSREADER_ variable, "+
			"for example NEWSREADER_VOICE or NEWSREADER_API_URL. GLAMOUR_STYLE selects the article style. "+
			"A .env file in the working directory is read first; variables already set win.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
