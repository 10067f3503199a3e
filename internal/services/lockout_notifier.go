package services

import (
	"context"
	"fmt"
	"html"
	"math"
	"time"

	"github.com/BradenHooton/lockgate/internal/models"
)

// AccountLookup resolves an account id to its user record
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// LockoutNotifier emails the account owner when their account gets locked.
// Unlock events are ignored.
type LockoutNotifier struct {
	sender   EmailSender
	accounts AccountLookup
}

// NewLockoutNotifier creates a new LockoutNotifier
func NewLockoutNotifier(sender EmailSender, accounts AccountLookup) *LockoutNotifier {
	return &LockoutNotifier{sender: sender, accounts: accounts}
}

// Emit implements AuditSink
func (n *LockoutNotifier) Emit(ctx context.Context, event models.LockoutEvent) error {
	if event.Kind != models.LockoutEventLockout || event.LockedUntil == nil {
		return nil
	}

	user, err := n.accounts.GetByID(ctx, event.AccountID)
	if err != nil {
		return fmt.Errorf("failed to resolve locked account: %w", err)
	}

	return n.sender.Send(ctx, lockoutEmail(user, event))
}

func lockoutEmail(user *models.User, event models.LockoutEvent) EmailMessage {
	until := event.LockedUntil.UTC().Format(time.RFC1123)
	minutes := int(math.Ceil(event.LockedUntil.Sub(event.Timestamp).Minutes()))

	origin := event.Origin
	if origin == "" {
		origin = "an unknown address"
	}

	text := fmt.Sprintf(`Your account has been temporarily locked

We detected %d failed sign-in attempts on your account, the last one from %s.
Sign-in is disabled for %d minutes, until %s.

If this was you, wait and try again. If it was not, change your password once the lock expires.
`, event.Attempts, origin, minutes, until)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Your account has been temporarily locked</h2>
    <p>We detected <strong>%d</strong> failed sign-in attempts on your account, the last one from <code>%s</code>.</p>
    <p>Sign-in is disabled for %d minutes, until <strong>%s</strong>.</p>
    <p>If this was you, wait and try again. If it was not, change your password once the lock expires.</p>
</body>
</html>
`, event.Attempts, html.EscapeString(origin), minutes, until)

	return EmailMessage{
		To:       user.Email,
		Subject:  "Your account has been temporarily locked",
		HTMLBody: htmlBody,
		TextBody: text,
	}
}
