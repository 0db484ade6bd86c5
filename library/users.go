package library

import (
	"context"
	"time"

	"github.com/AntonStoeckl/library-circulation-go/library/core"
)

// RegisterUser registers a user that is bound to a notification service.
func (l *Library) RegisterUser(ctx context.Context, user *core.User) (err error) {
	defer func(start time.Time) { l.observe(ctx, operationRegisterUser, start, err, logAttrUserID, userIDOf(user)) }(time.Now())

	if err = core.ValidateUser(user); err != nil {
		return err
	}

	existing, lookupErr := l.db.GetUserByID(ctx, user.ID())
	if lookupErr != nil {
		return persistenceFailure(lookupErr)
	}

	if existing != nil {
		return core.ErrUserAlreadyExists
	}

	if registerErr := l.db.RegisterUser(ctx, user.ID(), user); registerErr != nil {
		return persistenceFailure(registerErr)
	}

	return nil
}

func userIDOf(user *core.User) string {
	if user == nil {
		return ""
	}

	return user.ID()
}
