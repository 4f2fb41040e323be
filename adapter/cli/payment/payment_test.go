package payment

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrikhq/modulus/adapter/cli"
	internalApp "github.com/fabrikhq/modulus/internal/app"
	"github.com/fabrikhq/modulus/pkg/config"
)

var testUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         "test",
		LocalMode:      true,
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "test.db"),
		UserID:         testUserID.String(),
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	container, err := internalApp.NewLocalContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	cliApp := cli.NewApp(
		container.SubscribeHandler,
		container.CancelSubscriptionHandler,
		container.UpgradeSubscriptionHandler,
		container.GetSubscriptionHandler,
		container.ListSubscriptionsHandler,
		container.SubmitPaymentHandler,
		container.VerifyPaymentHandler,
		container.RejectPaymentHandler,
		container.GetPaymentHandler,
		container.ListPaymentsHandler,
		container.ListPendingPaymentsHandler,
		container.CatalogRegistry,
		container.UsageAggregator,
		container.LibraryGate,
	)
	cliApp.SetCurrentUserID(testUserID)
	cli.SetApp(cliApp)

	return cliApp
}

func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	buf := new(bytes.Buffer)
	Cmd.SetOut(buf)
	Cmd.SetErr(buf)
	Cmd.SetArgs(args)
	require.NoError(t, Cmd.Execute())
	return buf.String()
}

// paymentIDFromOutput extracts the payment ID the submit command prints.
func paymentIDFromOutput(t *testing.T, output string) string {
	t.Helper()

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if id, ok := strings.CutPrefix(line, "ID: "); ok {
			return id
		}
	}
	t.Fatalf("no payment ID in output: %q", output)
	return ""
}

func TestSubmitCommand(t *testing.T) {
	setupLocalModeTestApp(t)

	output := runCommand(t, "submit", "TXN-CLI-1",
		"--module", "ledger", "--amount", "499", "--method", "mobile_money", "--phone", "+254700000001")
	assert.Contains(t, output, "Payment submitted for verification")
	assert.Contains(t, output, "Status: submitted")
}

func TestSubmitCommand_DuplicateReference(t *testing.T) {
	setupLocalModeTestApp(t)

	runCommand(t, "submit", "TXN-CLI-2", "--module", "ledger", "--amount", "499")

	Cmd.SetOut(new(bytes.Buffer))
	Cmd.SetErr(new(bytes.Buffer))
	Cmd.SetArgs([]string{"submit", "TXN-CLI-2", "--module", "ledger", "--amount", "499"})
	err := Cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to submit payment")
}

func TestListCommand_Pending(t *testing.T) {
	setupLocalModeTestApp(t)

	output := runCommand(t, "list", "--pending")
	assert.Contains(t, output, "No payments awaiting verification")

	runCommand(t, "submit", "TXN-CLI-3", "--module", "workshops", "--amount", "799", "--method", "bank_transfer")

	output = runCommand(t, "list", "--pending")
	assert.Contains(t, output, "TXN-CLI-3")
	assert.Contains(t, output, "submitted")
}

func TestVerifyCommand(t *testing.T) {
	setupLocalModeTestApp(t)

	output := runCommand(t, "submit", "TXN-CLI-4", "--module", "ledger", "--amount", "499")
	paymentID := paymentIDFromOutput(t, output)

	output = runCommand(t, "verify", paymentID)
	assert.Contains(t, output, "verified")

	output = runCommand(t, "show", paymentID)
	assert.Contains(t, output, "Status: verified")
}

func TestRejectCommand(t *testing.T) {
	setupLocalModeTestApp(t)

	output := runCommand(t, "submit", "TXN-CLI-5", "--module", "ledger", "--amount", "499")
	paymentID := paymentIDFromOutput(t, output)

	output = runCommand(t, "reject", paymentID, "--reason", "amount mismatch")
	assert.Contains(t, output, "rejected")

	output = runCommand(t, "show", paymentID)
	assert.Contains(t, output, "Status: rejected")
	assert.Contains(t, output, "Rejection reason: amount mismatch")
}

func TestVerifyCommand_InvalidID(t *testing.T) {
	setupLocalModeTestApp(t)

	Cmd.SetOut(new(bytes.Buffer))
	Cmd.SetErr(new(bytes.Buffer))
	Cmd.SetArgs([]string{"verify", "not-a-uuid"})
	err := Cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid payment id")
}
