package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrDuplicateRefund means a refund with the same (provider,
	// provider_refund_id) already exists; the caller treats it as success.
	ErrDuplicateRefund = errors.New("duplicate refund")

	// ErrDuplicateWebhook means another webhook row already claimed the same
	// (provider, event_id); the delivery is a replay.
	ErrDuplicateWebhook = errors.New("duplicate webhook event")
)

// isDuplicateKey reports a MySQL unique-constraint violation (error 1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
