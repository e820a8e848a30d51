package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/b2c-auth-demo/internal/business"
	"github.com/openkcm/b2c-auth-demo/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"B2C Demo API server",
		"Serves the protected demo endpoint, which accepts access tokens issued by the configured B2C user flow.",
		buildInfo,
		cmdutils.RunAsService,
		business.APIServerMain,
	)
}
