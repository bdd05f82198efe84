// Package notify delivers run summaries to operator channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
)

// maxReportedFailures caps how many failures are listed in a message
const maxReportedFailures = 10

// SlackNotifier posts run reports to a Slack channel
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

var _ interfaces.Notifier = &SlackNotifier{}

// NewSlack creates a Slack notifier with the provided bot token and
// destination channel ID.
func NewSlack(token, channel string) (*SlackNotifier, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channel == "" {
		return nil, goerr.New("Slack channel is required")
	}

	return &SlackNotifier{
		api:     slack.New(token),
		channel: channel,
	}, nil
}

// NotifyRunReport posts a summary message for the run
func (n *SlackNotifier) NotifyRunReport(ctx context.Context, report *model.RunReport) error {
	blocks := buildReportBlocks(report)

	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(headline(report), false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post run report",
			goerr.V("channel", n.channel), goerr.V("run_id", report.ID))
	}
	return nil
}

func headline(report *model.RunReport) string {
	if report.Failed() {
		return fmt.Sprintf(":warning: Identity sync finished with %d failure(s)", len(report.Failures))
	}
	return ":white_check_mark: Identity sync finished"
}

func buildReportBlocks(report *model.RunReport) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("Identity sync: %s", report.Connector), false, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			mdField("Directory users", fmt.Sprintf("%d", report.DirectoryUsers)),
			mdField("Unchanged", fmt.Sprintf("%d", report.Unchanged)),
			mdField("Groups created", fmt.Sprintf("%d", report.GroupsCreated)),
			mdField("Provisioned", fmt.Sprintf("%d", report.UsersProvisioned)),
			mdField("Updated", fmt.Sprintf("%d", report.UsersUpdated)),
			mdField("Deactivated", fmt.Sprintf("%d", report.UsersDeactivated)),
		}, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("run `%s` took %s", report.ID, report.Duration().Round(10*time.Millisecond)), false, false)),
	}

	if report.Failed() {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, failureSummary(report), false, false),
			nil, nil))
	}

	return blocks
}

func mdField(label, value string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType,
		fmt.Sprintf("*%s:* %s", label, value), false, false)
}

func failureSummary(report *model.RunReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%d failure(s):*\n", len(report.Failures)))
	for i, f := range report.Failures {
		if i >= maxReportedFailures {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(report.Failures)-maxReportedFailures))
			break
		}
		sb.WriteString(fmt.Sprintf("• [%s] `%s`: %s\n", f.Phase, f.Key, f.Reason))
	}
	return sb.String()
}
