package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/service/notify"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

// Notify holds CLI flags for operator notifications
type Notify struct {
	slackToken   string
	slackChannel string
}

// Flags returns CLI flags for notification configuration
func (n *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack bot token for run report notifications",
			Category:    "Notification",
			Sources:     cli.EnvVars("IDSYNC_SLACK_BOT_TOKEN"),
			Destination: &n.slackToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID for run report notifications",
			Category:    "Notification",
			Sources:     cli.EnvVars("IDSYNC_SLACK_CHANNEL"),
			Destination: &n.slackChannel,
		},
	}
}

// Configure builds the notifier, or returns nil when notifications are
// not configured.
func (n *Notify) Configure() (interfaces.Notifier, error) {
	if n.slackToken == "" && n.slackChannel == "" {
		return nil, nil
	}

	notifier, err := notify.NewSlack(n.slackToken, n.slackChannel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure Slack notifier")
	}
	logging.Default().Info("Slack notification enabled", "channel", n.slackChannel)
	return notifier, nil
}
