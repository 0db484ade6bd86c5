package core

import "context"

// NotificationService delivers messages to exactly one user.
type NotificationService interface {
	SendNotification(ctx context.Context, message string) error
}

// User is a library member identified by a 12-digit ID and bound to its own NotificationService.
type User struct {
	id                  string
	name                string
	notificationService NotificationService
}

// NewUser creates a User. It does not validate anything, see ValidateUser.
func NewUser(id, name string, notificationService NotificationService) *User {
	return &User{
		id:                  id,
		name:                name,
		notificationService: notificationService,
	}
}

func (u *User) ID() string {
	return u.id
}

func (u *User) Name() string {
	return u.name
}

func (u *User) NotificationService() NotificationService {
	return u.notificationService
}

// SendNotification delivers the message via the bound NotificationService.
func (u *User) SendNotification(ctx context.Context, message string) error {
	if u.notificationService == nil {
		return ErrInvalidNotificationService
	}

	return u.notificationService.SendNotification(ctx, message)
}
