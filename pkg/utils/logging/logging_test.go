package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/utils/logging"
)

func TestSecretRedaction(t *testing.T) {
	t.Run("provisioning password never reaches the output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, slog.LevelDebug, logging.FormatJSON)

		policy := model.DefaultPolicy()
		policy.Provisioning = model.ProvisionPasswordSuppressed
		policy.ProvisioningPassword = "hunter2-policy"

		logger.Info("policy loaded", "policy", policy)

		out := buf.String()
		gt.Bool(t, strings.Contains(out, "hunter2-policy")).False()
		gt.String(t, out).Contains("[REDACTED]")
	})

	t.Run("user payload password never reaches the output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.New(&buf, slog.LevelDebug, logging.FormatJSON)

		payload := &model.UserPayload{
			Email:    "alice@example.com",
			Password: "hunter2-payload",
		}

		logger.Debug("provisioning user", "payload", payload)

		out := buf.String()
		gt.Bool(t, strings.Contains(out, "hunter2-payload")).False()
		gt.String(t, out).Contains("alice@example.com")
	})
}
