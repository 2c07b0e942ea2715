package main

import (
	"github.com/spf13/cobra"

	"xscraper/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in manually in a visible browser and save the cookies",
	Long: `Opens a visible Chrome window on the login page and waits for you to
complete authentication by hand, including any 2FA or captcha challenge.
As soon as the page lands on a logged-in view the cookies are written to
the store, where every scrape session picks them up.

Cookies typically stay valid for around 30 days.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return auth.Login(auth.NewStore(cfg.CookieFile), cfg.Login.Timeout)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
