package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nguyentranbao-ct/chat-crm/internal/app"
	"github.com/nguyentranbao-ct/chat-crm/internal/server"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger"
	"github.com/nguyentranbao-ct/chat-crm/pkg/logger/log"
)

var rootCmd = &cobra.Command{
	Use:           "chat-crm",
	Short:         "CRM backend for conversations relayed by the chat bridge",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		defer logger.Sync()
		app.Invoke(
			server.StartServer,
		).Run()
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
