package actions

import (
	"context"
	"errors"
	"time"

	"github.com/vitwit/meter"
	"github.com/vitwit/meter/types"
)

// Gate authorizes and runs a gated effect. *meter.Session implements it.
type Gate interface {
	Run(ctx context.Context, kind types.ActionKind, effect meter.Effect) (*meter.Authorization, error)
}

// File is a stored spreadsheet. Content is URL-escaped.
type File struct {
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Content  string    `json:"content"`
	Name     string    `json:"name"`
	BillType int       `json:"billType"`
}

// ErrFileNotFound is returned by a Store for an unknown name.
var ErrFileNotFound = errors.New("file not found")

// Store is the local file store.
type Store interface {
	GetFile(ctx context.Context, name string) (*File, error)
	SaveFile(ctx context.Context, file *File) error
	Exists(ctx context.Context, name string) (bool, error)
}

// Document is the open spreadsheet.
type Document interface {
	// Content returns the serialized spreadsheet.
	Content() (string, error)
	// HTML returns the rendered sheet.
	HTML() (string, error)
}

type Printer interface {
	Print(ctx context.Context, html string) error
}

// Attachment is a base64 encoded mail attachment.
type Attachment struct {
	Type string
	Path string
	Name string
}

type Email struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	IsHTML      bool
	Attachments []Attachment
}

// Mailer composes an email on the device. Supported is false on clients
// without a native composer.
type Mailer interface {
	Supported() bool
	Send(ctx context.Context, email Email) error
}

// Level is the severity of a Notice.
type Level int

const (
	LevelSuccess Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	default:
		return "error"
	}
}

// Notice is the single user facing outcome of a menu action.
type Notice struct {
	Kind    types.ActionKind
	Level   Level
	Title   string
	Message string
	Err     error
}

// Notifier presents notices to the user.
type Notifier interface {
	Notify(notice Notice)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
