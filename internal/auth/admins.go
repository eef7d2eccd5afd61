// Package auth decides who may run admin commands and who may call the HTTP API.
package auth

import (
	"errors"
	"slices"

	log "github.com/sirupsen/logrus"
)

var ErrNotAdmin = errors.New("user is not an administrator")

// Admins is the allow-list of Telegram user IDs. It is immutable after construction.
type Admins struct {
	ids []int64
}

func NewAdmins(ids []int64) *Admins {
	return &Admins{ids: slices.Clone(ids)}
}

func (a *Admins) IsAdmin(userID int64) bool {
	return slices.Contains(a.ids, userID)
}

// Require returns ErrNotAdmin, and logs the attempt, when the user is not on the list.
func (a *Admins) Require(userID int64) error {
	if a.IsAdmin(userID) {
		return nil
	}
	log.WithField("user_id", userID).Warn("Unauthorized admin command attempt")
	return ErrNotAdmin
}

// IDs returns the configured admin IDs in configuration order.
func (a *Admins) IDs() []int64 {
	return slices.Clone(a.ids)
}
