package entity

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notifier receives transient notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// AuthState reports the ambient authentication state.
type AuthState interface {
	// Loading is true while the session is still being resolved.
	Loading() bool
	Authenticated() bool
}

// Invalidator marks a shared collection as stale.
type Invalidator interface {
	Invalidate(collection string)
}

// Env carries the collaborators a Controller reports to. Nil members are
// treated as no-ops; a nil Auth counts as signed in.
type Env struct {
	Auth       AuthState
	Notify     Notifier
	Navigate   Navigator
	Invalidate Invalidator
	Queue      *PatchQueue
}

func (e Env) notify(level, msg string) {
	if e.Notify != nil {
		e.Notify.Notify(Notification{Level: level, Message: msg})
	}
}

func (e Env) navigate(path string) {
	if e.Navigate != nil {
		e.Navigate.Navigate(path)
	}
}

func (e Env) invalidate(collection string) {
	if e.Invalidate != nil && collection != "" {
		e.Invalidate.Invalidate(collection)
	}
}

func (e Env) authLoading() bool {
	return e.Auth != nil && e.Auth.Loading()
}

func (e Env) authenticated() bool {
	return e.Auth == nil || e.Auth.Authenticated()
}
