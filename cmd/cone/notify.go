package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cone387/cone/pkg/notify"
)

var (
	notifyMessage string
	notifyRobot   string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a text message through a configured chat robot",
	Long: `Send a text message through one of the robots listed in cone.yaml.
Without --robot a robot is picked at random.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		client := notify.NewClient(cfg.Notify.ClientOptions(slog.Default())...)

		message := notifyMessage
		if message == "" {
			message = cfg.Notify.Message
		}
		if message == "" {
			message = notify.DefaultMessage
		}

		var robot notify.Robot
		var err error
		if notifyRobot != "" {
			robot, err = cfg.Notify.Robot(notifyRobot)
		} else {
			robot, err = notify.Pick(cfg.Notify.Robots, nil)
		}
		if err != nil {
			fatal("Error selecting robot", err)
		}

		if err := client.SendText(context.Background(), robot, message); err != nil {
			fatal("Error sending message", err)
		}
		fmt.Printf("Message sent via %s\n", robot)
	},
}

func init() {
	notifyCmd.Flags().StringVarP(&notifyMessage, "message", "m", "", "Message text (default: notify.message from config)")
	notifyCmd.Flags().StringVarP(&notifyRobot, "robot", "r", "", "Robot name to send as")
	rootCmd.AddCommand(notifyCmd)
}
