package web

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/b2c-auth-demo/internal/business"
	"github.com/openkcm/b2c-auth-demo/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"web",
		"B2C Demo web UI",
		"Serves the demo page on the local machine. Signing in opens the Azure AD B2C login page in the system browser.",
		buildInfo,
		cmdutils.RunAsService,
		business.WebMain,
	)
}
